package ws

// Event type constants for WebSocket messages.
const (
	EventRunStatus         = "run.status"
	EventDiscoveryProgress = "discovery.progress"
	EventExportComponent   = "export.component"
	EventApplyAction       = "apply.action"
)

// RunStatusEvent is broadcast when a run starts, finishes, or fails.
type RunStatusEvent struct {
	RunID  string `json:"run_id"`
	Stage  string `json:"stage"` // "discover", "export", "apply", "sow"
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// DiscoveryProgressEvent is broadcast as the crawl advances.
type DiscoveryProgressEvent struct {
	RunID    string `json:"run_id"`
	Groups   int    `json:"groups"`
	Projects int    `json:"projects"`
	Current  string `json:"current,omitempty"`
	APICalls int64  `json:"api_calls"`
}

// ExportComponentEvent is broadcast when one export component finishes
// for a project.
type ExportComponentEvent struct {
	RunID     string `json:"run_id"`
	ProjectID int64  `json:"project_id"`
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// ApplyActionEvent is broadcast after each plan action executes.
type ApplyActionEvent struct {
	RunID      string `json:"run_id"`
	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`
	Status     string `json:"status"`
	Simulated  bool   `json:"simulated"`
}
