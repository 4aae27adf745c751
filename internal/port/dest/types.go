package dest

// Repo is a destination repository.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch,omitempty"`
	HTMLURL       string `json:"html_url,omitempty"`
	CloneURL      string `json:"clone_url,omitempty"`
	Archived      bool   `json:"archived"`
}

// CreateRepoParams are the fields for creating a repository. An empty
// org creates under the authenticated user.
type CreateRepoParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	HasIssues   bool   `json:"has_issues"`
	HasWiki     bool   `json:"has_wiki"`
	AutoInit    bool   `json:"auto_init"`
}

// UpdateRepoParams are the mutable repository settings. Nil pointers
// leave the setting unchanged.
type UpdateRepoParams struct {
	Description   *string `json:"description,omitempty"`
	DefaultBranch string  `json:"default_branch,omitempty"`
	Archived      *bool   `json:"archived,omitempty"`
}

// Label is a destination issue label.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Milestone is a destination milestone.
type Milestone struct {
	Number int64  `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state,omitempty"`
}

// MilestoneParams are the fields for creating a milestone.
type MilestoneParams struct {
	Title       string `json:"title"`
	State       string `json:"state,omitempty"`
	Description string `json:"description,omitempty"`
	DueOn       string `json:"due_on,omitempty"`
}

// Issue identifies a created destination issue.
type Issue struct {
	Number  int64  `json:"number"`
	HTMLURL string `json:"html_url,omitempty"`
}

// IssueParams are the fields for creating an issue.
type IssueParams struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Milestone int64    `json:"milestone,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// Comment identifies a created comment.
type Comment struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url,omitempty"`
}

// PullRequest identifies a created pull request.
type PullRequest struct {
	Number  int64  `json:"number"`
	HTMLURL string `json:"html_url,omitempty"`
}

// PullRequestParams are the fields for creating a pull request.
type PullRequestParams struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Draft bool   `json:"draft,omitempty"`
}

// Release identifies a created release.
type Release struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url,omitempty"`
}

// ReleaseParams are the fields for creating a release.
type ReleaseParams struct {
	TagName         string `json:"tag_name"`
	Name            string `json:"name,omitempty"`
	Body            string `json:"body,omitempty"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
}

// CommitFileParams are the fields for committing one file through the
// contents API.
type CommitFileParams struct {
	Message string `json:"message"`
	Content []byte `json:"content"`
	Branch  string `json:"branch,omitempty"`
}

// BranchProtectionParams are the destination protection settings for
// one branch.
type BranchProtectionParams struct {
	RequiredReviews         int      `json:"required_reviews"`
	RequireCodeOwnerReviews bool     `json:"require_code_owner_reviews"`
	EnforceAdmins           bool     `json:"enforce_admins"`
	AllowForcePushes        bool     `json:"allow_force_pushes"`
	RequiredStatusChecks    []string `json:"required_status_checks,omitempty"`
}

// WebhookParams are the fields for creating a webhook. Secret is a
// fresh value supplied by the operator; source secrets are never
// copied.
type WebhookParams struct {
	URL         string   `json:"url"`
	ContentType string   `json:"content_type,omitempty"`
	Events      []string `json:"events"`
	Active      bool     `json:"active"`
	Secret      string   `json:"secret,omitempty"`
}
