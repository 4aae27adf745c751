// Package source defines the read-only port onto the source forge
// (GitLab and compatible APIs). Discovery, deep analysis, and export
// all speak through this interface; nothing behind it may write.
package source

import "context"

// Capabilities declares which surfaces the source forge exposes.
// Components skip a surface the forge does not have instead of
// recording an error.
type Capabilities struct {
	Wiki          bool `json:"wiki"`
	Releases      bool `json:"releases"`
	Packages      bool `json:"packages"`
	Pipelines     bool `json:"pipelines"`
	Environments  bool `json:"environments"`
	ApprovalRules bool `json:"approval_rules"`
}

// Provider is the port interface for reading a source forge.
type Provider interface {
	// Name returns the provider identifier (e.g. "gitlab").
	Name() string

	// Capabilities returns what this forge exposes.
	Capabilities() Capabilities

	// HealthCheck verifies connectivity and token validity, returning
	// the forge version.
	HealthCheck(ctx context.Context) (string, error)

	// GetProject resolves a project by path or numeric id.
	GetProject(ctx context.Context, path string) (*Project, error)

	// GetGroup resolves a group by full path or numeric id.
	GetGroup(ctx context.Context, path string) (*Group, error)

	// ListGroups returns the top-level groups visible to the token.
	ListGroups(ctx context.Context) ([]Group, error)

	// ListSubgroups returns the direct subgroups of a group.
	ListSubgroups(ctx context.Context, groupID int64) ([]Group, error)

	// ListGroupProjects returns the direct (non-shared) projects of a
	// group.
	ListGroupProjects(ctx context.Context, groupID int64) ([]Project, error)

	// RawFile fetches a repository file at the given ref. The second
	// return is false when the file does not exist.
	RawFile(ctx context.Context, projectID int64, ref, path string) ([]byte, bool, error)

	// ListTree lists one directory level of the repository tree.
	ListTree(ctx context.Context, projectID int64, ref, path string) ([]TreeEntry, error)

	// CountMergeRequests counts MRs in the given state up to ceiling.
	// The bool is false when the count is inexact (ceiling reached).
	CountMergeRequests(ctx context.Context, projectID int64, state string, ceiling int) (int, bool, error)

	// CountIssues counts issues in the given state up to ceiling.
	CountIssues(ctx context.Context, projectID int64, state string, ceiling int) (int, bool, error)

	// Repository shape.
	ListBranches(ctx context.Context, projectID int64) ([]Branch, error)
	ListTags(ctx context.Context, projectID int64) ([]Tag, error)
	ListProtectedBranches(ctx context.Context, projectID int64) ([]ProtectedBranch, error)
	ListProtectedTags(ctx context.Context, projectID int64) ([]ProtectedTag, error)

	// CI surface. Variables are metadata only; values never cross this
	// interface.
	ListProjectVariables(ctx context.Context, projectID int64) ([]Variable, error)
	ListGroupVariables(ctx context.Context, groupID int64) ([]Variable, error)
	ListPipelineSchedules(ctx context.Context, projectID int64) ([]PipelineSchedule, error)
	ListEnvironments(ctx context.Context, projectID int64) ([]Environment, error)
	ListPipelines(ctx context.Context, projectID int64, limit int) ([]Pipeline, error)

	// Issue machinery.
	ListLabels(ctx context.Context, projectID int64) ([]Label, error)
	ListMilestones(ctx context.Context, projectID int64) ([]Milestone, error)
	ListIssues(ctx context.Context, projectID int64) ([]Issue, error)
	ListIssueNotes(ctx context.Context, projectID, issueIID int64) ([]Note, error)

	// Merge requests.
	ListMergeRequests(ctx context.Context, projectID int64) ([]MergeRequest, error)
	ListMRDiscussions(ctx context.Context, projectID, mrIID int64) ([]Discussion, error)
	ListMRChanges(ctx context.Context, projectID, mrIID int64) ([]FileDiff, error)
	GetMRApprovals(ctx context.Context, projectID, mrIID int64) (*ApprovalStatus, error)

	// Wiki, releases, packages.
	ListWikiPages(ctx context.Context, projectID int64) ([]WikiPage, error)
	GetWikiPage(ctx context.Context, projectID int64, slug string) (*WikiPage, error)
	ListReleases(ctx context.Context, projectID int64) ([]Release, error)
	ListPackages(ctx context.Context, projectID int64) ([]Package, error)
	ListPackageFiles(ctx context.Context, projectID, packageID int64) ([]PackageFile, error)

	// Settings.
	ListMembers(ctx context.Context, projectID int64) ([]Member, error)
	ListWebhooks(ctx context.Context, projectID int64) ([]Webhook, error)
	ListDeployKeys(ctx context.Context, projectID int64) ([]DeployKey, error)
	ListDeployTokens(ctx context.Context, projectID int64) ([]DeployToken, error)
}
