// Package inventory defines the discovery output document: the run
// summary, group tree, and per-project facts, readiness and estimates.
// The document is immutable once written and must validate against the
// embedded JSON schema before it is published.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Visibility is the source forge's project visibility level.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// Complexity is the coarse migration-readiness grade of a project.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Confidence is the estimator's self-assessment of an estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Inventory is the schema-validated output of a discovery run.
type Inventory struct {
	Run      Run       `json:"run"`
	Groups   []Group   `json:"groups"`
	Projects []Project `json:"projects"`
}

// Run summarizes a single discovery execution.
type Run struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	BaseURL    string    `json:"base_url"`
	RootGroup  string    `json:"root_group,omitempty"`
	Stats      RunStats  `json:"stats"`
}

// RunStats counts what the run touched.
type RunStats struct {
	Groups   int `json:"groups"`
	Projects int `json:"projects"`
	Errors   int `json:"errors"`
	APICalls int `json:"api_calls"`
}

// Group is one group in the discovered tree with the ids of its direct
// projects.
type Group struct {
	ID       int64   `json:"id"`
	FullPath string  `json:"full_path"`
	Projects []int64 `json:"projects"`
}

// Project is one discovered project with its gathered facts.
type Project struct {
	ID                int64          `json:"id"`
	PathWithNamespace string         `json:"path_with_namespace"`
	DefaultBranch     string         `json:"default_branch,omitempty"`
	Archived          bool           `json:"archived"`
	Visibility        Visibility     `json:"visibility"`
	GroupID           int64          `json:"group_id,omitempty"`
	Facts             Facts          `json:"facts"`
	Readiness         Readiness      `json:"readiness"`
	Errors            []ProjectError `json:"errors"`
	Estimate          *Estimate      `json:"estimate,omitempty"`
}

// Facts holds the fixed fact set gathered for every project, plus the
// optional deep-analysis enrichment.
type Facts struct {
	HasCI       Tristate    `json:"has_ci"`
	HasLFS      Tristate    `json:"has_lfs"`
	MRCounts    MRCounts    `json:"mr_counts"`
	IssueCounts IssueCounts `json:"issue_counts"`

	RepoProfile *RepoProfile `json:"repo_profile,omitempty"`
	CIProfile   *CIProfile   `json:"ci_profile,omitempty"`
	Enrichment  *Enrichment  `json:"enrichment,omitempty"`
}

// RepoProfile is the repository shape collected during deep analysis.
type RepoProfile struct {
	Branches      int  `json:"branches"`
	Tags          int  `json:"tags"`
	HasSubmodules bool `json:"has_submodules"`
	HasLFS        bool `json:"has_lfs"`
}

// CIProfile is the feature profile parsed from a project's CI
// configuration. The parser is a tolerant line scanner, so every flag
// is advisory rather than authoritative.
type CIProfile struct {
	Features    CIFeatures  `json:"features"`
	RunnerHints RunnerHints `json:"runner_hints"`
	JobsCount   int         `json:"jobs_count"`
}

// CIFeatures flags pipeline constructs found in the CI configuration.
type CIFeatures struct {
	Include      bool `json:"include"`
	Services     bool `json:"services"`
	Artifacts    bool `json:"artifacts"`
	Cache        bool `json:"cache"`
	Rules        bool `json:"rules"`
	Needs        bool `json:"needs"`
	Parallel     bool `json:"parallel"`
	Trigger      bool `json:"trigger"`
	Environments bool `json:"environments"`
	ManualJobs   bool `json:"manual_jobs"`
	Variables    bool `json:"variables"`
	Extends      bool `json:"extends"`
	Matrix       bool `json:"matrix"`
}

// RunnerHints flags runner requirements inferred from the CI
// configuration.
type RunnerHints struct {
	UsesTags           bool `json:"uses_tags"`
	PossibleSelfHosted bool `json:"possible_self_hosted"`
	DockerInDocker     bool `json:"docker_in_docker"`
	Privileged         bool `json:"privileged"`
}

// Enrichment is the deep-analysis extension of the fact set.
type Enrichment struct {
	Permissions  Permissions  `json:"permissions"`
	Integrations Integrations `json:"integrations"`
	RiskFlags    RiskFlags    `json:"risk_flags"`
}

// Permissions records which read probes succeeded for the token in use.
type Permissions struct {
	CanReadRepo              bool `json:"can_read_repo"`
	CanReadCI                bool `json:"can_read_ci"`
	CanReadProtectedBranches bool `json:"can_read_protected_branches"`
	CanReadVariables         bool `json:"can_read_variables"`
	CanReadWebhooks          bool `json:"can_read_webhooks"`
}

// Integrations counts project surfaces beyond the repository itself.
type Integrations struct {
	ProtectedBranches int  `json:"protected_branches"`
	HasCodeowners     bool `json:"has_codeowners"`
	ProjectVariables  int  `json:"project_variables"`
	GroupVariables    int  `json:"group_variables"`
	Webhooks          int  `json:"webhooks"`
	ContainerRegistry bool `json:"container_registry"`
	Packages          bool `json:"packages"`
	Wiki              bool `json:"wiki"`
	Pages             bool `json:"pages"`
	Releases          int  `json:"releases"`
	HasDockerfile     bool `json:"has_dockerfile"`
	HasCompose        bool `json:"has_compose"`
	HasK8sManifests   bool `json:"has_k8s_manifests"`
}

// RiskFlags marks conditions that drive effort or need operator review.
type RiskFlags struct {
	ComplexCI            bool `json:"complex_ci"`
	SelfHostedRunnerHint bool `json:"self_hosted_runner_hints"`
	BigMRBacklog         bool `json:"big_mr_backlog"`
	BigIssueBacklog      bool `json:"big_issue_backlog"`
	ExceededLimits       bool `json:"exceeded_limits"`
	MissingDefaultBranch bool `json:"missing_default_branch"`
}

// Readiness is the deterministic post-pass verdict for a project.
type Readiness struct {
	Complexity Complexity `json:"complexity"`
	Blockers   []string   `json:"blockers"`
	Notes      []string   `json:"notes"`
}

// ProjectError is a serialized step failure attached to a project.
type ProjectError struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Status   int    `json:"status,omitempty"`
	Message  string `json:"message"`
}

// Estimate is the deep-mode effort estimate for a project.
type Estimate struct {
	HoursLow      float64    `json:"hours_low"`
	HoursHigh     float64    `json:"hours_high"`
	Confidence    Confidence `json:"confidence"`
	Drivers       []string   `json:"drivers"`
	Blockers      []string   `json:"blockers"`
	Unknowns      []string   `json:"unknowns"`
	ScopeFlags    ScopeFlags `json:"scope_flags"`
	WorkScore     int        `json:"work_score"`
	Bucket        string     `json:"bucket"`
	Breakdown     *Breakdown `json:"breakdown,omitempty"`
	CriticalNotes []string   `json:"critical_notes,omitempty"`
}

// ScopeFlags lists what the migration is expected to cover and what it
// is known to leave behind. Both lists are capped at five entries.
type ScopeFlags struct {
	Supported    []string `json:"supported"`
	NotSupported []string `json:"not_supported"`
}

// Breakdown splits an estimate into its work areas. When present, the
// per-area hours sum to the top-level hours.
type Breakdown struct {
	Code   HoursRange `json:"code"`
	MRs    HoursRange `json:"mrs"`
	Issues HoursRange `json:"issues"`
	CI     HoursRange `json:"ci"`
}

// HoursRange is a low/high effort band in hours.
type HoursRange struct {
	HoursLow  float64 `json:"hours_low"`
	HoursHigh float64 `json:"hours_high"`
}

// Sort orders groups by full path and projects by namespace path so
// repeated runs over an unchanged source produce identical documents.
func (inv *Inventory) Sort() {
	sort.Slice(inv.Groups, func(i, j int) bool {
		return inv.Groups[i].FullPath < inv.Groups[j].FullPath
	})
	for i := range inv.Groups {
		ids := inv.Groups[i].Projects
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	}
	sort.Slice(inv.Projects, func(i, j int) bool {
		return inv.Projects[i].PathWithNamespace < inv.Projects[j].PathWithNamespace
	})
}

// WriteFile validates the inventory and writes it as indented JSON via
// a temp file rename, so a crashed run never leaves a truncated
// document behind.
func (inv *Inventory) WriteFile(path string) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("inventory rejected by schema: %w", err)
	}
	raw, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish inventory: %w", err)
	}
	return nil
}

// ReadFile loads and re-validates a previously written inventory.
func ReadFile(path string) (*Inventory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	var inv Inventory
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("inventory rejected by schema: %w", err)
	}
	return &inv, nil
}
