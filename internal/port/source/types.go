package source

import "time"

// Project is a source-forge project as discovery and export see it.
type Project struct {
	ID                       int64     `json:"id"`
	PathWithNamespace        string    `json:"path_with_namespace"`
	Name                     string    `json:"name,omitempty"`
	Description              string    `json:"description,omitempty"`
	DefaultBranch            string    `json:"default_branch,omitempty"`
	Archived                 bool      `json:"archived"`
	Visibility               string    `json:"visibility"`
	EmptyRepo                bool      `json:"empty_repo"`
	HTTPURLToRepo            string    `json:"http_url_to_repo,omitempty"`
	SSHURLToRepo             string    `json:"ssh_url_to_repo,omitempty"`
	WebURL                   string    `json:"web_url,omitempty"`
	Namespace                Namespace `json:"namespace"`
	LFSEnabled               bool      `json:"lfs_enabled"`
	WikiEnabled              bool      `json:"wiki_enabled"`
	IssuesEnabled            bool      `json:"issues_enabled"`
	MergeRequestsEnabled     bool      `json:"merge_requests_enabled"`
	ContainerRegistryEnabled bool      `json:"container_registry_enabled"`
	PackagesEnabled          bool      `json:"packages_enabled"`
	PagesAccessLevel         string    `json:"pages_access_level,omitempty"`
	CreatedAt                time.Time `json:"created_at,omitzero"`
	LastActivityAt           time.Time `json:"last_activity_at,omitzero"`
}

// Namespace is the owning group or user of a project.
type Namespace struct {
	ID       int64  `json:"id"`
	FullPath string `json:"full_path"`
	Kind     string `json:"kind"`
}

// Group is a source-forge group.
type Group struct {
	ID          int64  `json:"id"`
	FullPath    string `json:"full_path"`
	Name        string `json:"name,omitempty"`
	ParentID    int64  `json:"parent_id,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	Description string `json:"description,omitempty"`
}

// TreeEntry is one entry of a repository directory listing.
type TreeEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// CommitRef identifies the commit a branch or tag points at.
type CommitRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Branch is a repository branch with its protection flags.
type Branch struct {
	Name      string    `json:"name"`
	Default   bool      `json:"default"`
	Protected bool      `json:"protected"`
	Merged    bool      `json:"merged"`
	Commit    CommitRef `json:"commit"`
}

// Tag is a repository tag.
type Tag struct {
	Name      string    `json:"name"`
	Message   string    `json:"message,omitempty"`
	Protected bool      `json:"protected"`
	Commit    CommitRef `json:"commit"`
}

// AccessLevel is one entry of a protection rule's allow list.
type AccessLevel struct {
	AccessLevel int    `json:"access_level"`
	Description string `json:"access_level_description,omitempty"`
}

// ProtectedBranch is a branch protection rule.
type ProtectedBranch struct {
	ID                        int64         `json:"id"`
	Name                      string        `json:"name"`
	PushAccessLevels          []AccessLevel `json:"push_access_levels"`
	MergeAccessLevels         []AccessLevel `json:"merge_access_levels"`
	AllowForcePush            bool          `json:"allow_force_push"`
	CodeOwnerApprovalRequired bool          `json:"code_owner_approval_required"`
}

// ProtectedTag is a tag protection rule.
type ProtectedTag struct {
	Name               string        `json:"name"`
	CreateAccessLevels []AccessLevel `json:"create_access_levels"`
}

// Variable is CI variable metadata. There is deliberately no value
// field: secret values never cross this interface.
type Variable struct {
	Key              string `json:"key"`
	VariableType     string `json:"variable_type,omitempty"`
	Protected        bool   `json:"protected"`
	Masked           bool   `json:"masked"`
	EnvironmentScope string `json:"environment_scope,omitempty"`
}

// Webhook is a project hook. Tokens are never returned by the forge
// and never stored here.
type Webhook struct {
	ID                       int64  `json:"id"`
	URL                      string `json:"url"`
	PushEvents               bool   `json:"push_events"`
	IssuesEvents             bool   `json:"issues_events"`
	ConfidentialIssuesEvents bool   `json:"confidential_issues_events"`
	MergeRequestsEvents      bool   `json:"merge_requests_events"`
	TagPushEvents            bool   `json:"tag_push_events"`
	NoteEvents               bool   `json:"note_events"`
	JobEvents                bool   `json:"job_events"`
	PipelineEvents           bool   `json:"pipeline_events"`
	WikiPageEvents           bool   `json:"wiki_page_events"`
	DeploymentEvents         bool   `json:"deployment_events"`
	ReleasesEvents           bool   `json:"releases_events"`
	EnableSSLVerification    bool   `json:"enable_ssl_verification"`
}

// PipelineSchedule is a scheduled pipeline definition.
type PipelineSchedule struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Ref         string    `json:"ref"`
	Cron        string    `json:"cron"`
	Active      bool      `json:"active"`
	Owner       User      `json:"owner"`
	NextRunAt   time.Time `json:"next_run_at,omitzero"`
}

// Environment is a deployment environment.
type Environment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ExternalURL string `json:"external_url,omitempty"`
	State       string `json:"state,omitempty"`
	Tier        string `json:"tier,omitempty"`
}

// Pipeline is one pipeline run.
type Pipeline struct {
	ID        int64     `json:"id"`
	SHA       string    `json:"sha"`
	Ref       string    `json:"ref"`
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	WebURL    string    `json:"web_url,omitempty"`
}

// Label is an issue or MR label.
type Label struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

// Milestone groups issues and MRs toward a date.
type Milestone struct {
	ID          int64  `json:"id"`
	IID         int64  `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	State       string `json:"state"`
	DueDate     string `json:"due_date,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
}

// User identifies a forge account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	State    string `json:"state,omitempty"`
	WebURL   string `json:"web_url,omitempty"`
}

// TimeStats is issue time tracking.
type TimeStats struct {
	TimeEstimate        int    `json:"time_estimate"`
	TotalTimeSpent      int    `json:"total_time_spent"`
	HumanTimeEstimate   string `json:"human_time_estimate,omitempty"`
	HumanTotalTimeSpent string `json:"human_total_time_spent,omitempty"`
}

// Issue is a source-forge issue.
type Issue struct {
	ID             int64      `json:"id"`
	IID            int64      `json:"iid"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	State          string     `json:"state"`
	Confidential   bool       `json:"confidential"`
	Labels         []string   `json:"labels,omitempty"`
	Milestone      *Milestone `json:"milestone,omitempty"`
	Author         User       `json:"author"`
	Assignees      []User     `json:"assignees,omitempty"`
	DueDate        string     `json:"due_date,omitempty"`
	UserNotesCount int        `json:"user_notes_count"`
	TimeStats      TimeStats  `json:"time_stats"`
	CreatedAt      time.Time  `json:"created_at,omitzero"`
	UpdatedAt      time.Time  `json:"updated_at,omitzero"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	WebURL         string     `json:"web_url,omitempty"`
}

// Position anchors a diff comment to a file and line.
type Position struct {
	BaseSHA      string `json:"base_sha,omitempty"`
	StartSHA     string `json:"start_sha,omitempty"`
	HeadSHA      string `json:"head_sha,omitempty"`
	OldPath      string `json:"old_path,omitempty"`
	NewPath      string `json:"new_path,omitempty"`
	PositionType string `json:"position_type,omitempty"`
	OldLine      *int   `json:"old_line,omitempty"`
	NewLine      *int   `json:"new_line,omitempty"`
}

// Note is a comment on an issue or MR. System notes record forge
// activity and are filtered out of exports.
type Note struct {
	ID         int64     `json:"id"`
	Body       string    `json:"body"`
	Author     User      `json:"author"`
	System     bool      `json:"system"`
	Resolvable bool      `json:"resolvable"`
	Resolved   bool      `json:"resolved"`
	Position   *Position `json:"position,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// Discussion is a comment thread on an MR.
type Discussion struct {
	ID             string `json:"id"`
	IndividualNote bool   `json:"individual_note"`
	Notes          []Note `json:"notes"`
}

// MergeRequest is a source-forge merge request.
type MergeRequest struct {
	ID             int64      `json:"id"`
	IID            int64      `json:"iid"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	State          string     `json:"state"`
	Draft          bool       `json:"draft"`
	WorkInProgress bool       `json:"work_in_progress"`
	SourceBranch   string     `json:"source_branch"`
	TargetBranch   string     `json:"target_branch"`
	Labels         []string   `json:"labels,omitempty"`
	Milestone      *Milestone `json:"milestone,omitempty"`
	Author         User       `json:"author"`
	Assignees      []User     `json:"assignees,omitempty"`
	Reviewers      []User     `json:"reviewers,omitempty"`
	MergeStatus    string     `json:"merge_status,omitempty"`
	HasConflicts   bool       `json:"has_conflicts"`
	SHA            string     `json:"sha,omitempty"`
	MergeCommitSHA string     `json:"merge_commit_sha,omitempty"`
	UserNotesCount int        `json:"user_notes_count"`
	CreatedAt      time.Time  `json:"created_at,omitzero"`
	UpdatedAt      time.Time  `json:"updated_at,omitzero"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	WebURL         string     `json:"web_url,omitempty"`
}

// FileDiff is one file's diff within an MR.
type FileDiff struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

// ApprovalStatus is the approval state of an MR.
type ApprovalStatus struct {
	Approved          bool   `json:"approved"`
	ApprovalsRequired int    `json:"approvals_required"`
	ApprovalsLeft     int    `json:"approvals_left"`
	ApprovedBy        []User `json:"approved_by,omitempty"`
}

// WikiPage is a wiki page; Content is empty in listings.
type WikiPage struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
}

// ReleaseLink is an extra asset link attached to a release.
type ReleaseLink struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	LinkType string `json:"link_type,omitempty"`
}

// ReleaseSource is a generated source archive of a release.
type ReleaseSource struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

// ReleaseEvidence is a release evidence entry.
type ReleaseEvidence struct {
	SHA         string    `json:"sha"`
	Filepath    string    `json:"filepath"`
	CollectedAt time.Time `json:"collected_at,omitzero"`
}

// Release is a tagged release with its assets.
type Release struct {
	TagName     string            `json:"tag_name"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Author      User              `json:"author,omitzero"`
	CreatedAt   time.Time         `json:"created_at,omitzero"`
	ReleasedAt  time.Time         `json:"released_at,omitzero"`
	Links       []ReleaseLink     `json:"links,omitempty"`
	Sources     []ReleaseSource   `json:"sources,omitempty"`
	Evidences   []ReleaseEvidence `json:"evidences,omitempty"`
}

// Package is a package-registry entry.
type Package struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	PackageType string `json:"package_type"`
}

// PackageFile is one file of a package with its checksums.
type PackageFile struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	SHA1     string `json:"file_sha1,omitempty"`
	SHA256   string `json:"file_sha256,omitempty"`
}

// Member is a project member.
type Member struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name,omitempty"`
	AccessLevel int    `json:"access_level"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// DeployKey is a read or read-write deploy key. Only the public part
// exists on the forge.
type DeployKey struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Key       string    `json:"key"`
	CanPush   bool      `json:"can_push"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// DeployToken is deploy token metadata; the secret is never listed by
// the forge and never stored.
type DeployToken struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Username  string   `json:"username,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	ExpiresAt string   `json:"expires_at,omitempty"`
	Revoked   bool     `json:"revoked"`
	Expired   bool     `json:"expired"`
}

// AccessLevelName maps a numeric access level to its label.
func AccessLevelName(level int) string {
	switch {
	case level >= 50:
		return "owner"
	case level >= 40:
		return "maintainer"
	case level >= 30:
		return "developer"
	case level >= 20:
		return "reporter"
	case level >= 10:
		return "guest"
	default:
		return "minimal"
	}
}
