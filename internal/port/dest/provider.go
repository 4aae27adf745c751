// Package dest defines the write port onto the destination forge
// (GitHub and compatible APIs). Only the apply orchestrator's actions
// speak through this interface.
package dest

import (
	"context"
	"errors"
)

// ErrMissingHeadBranch reports that a pull request cannot be created
// because its head branch does not exist on the destination. The PR
// action falls back to creating a placeholder issue.
var ErrMissingHeadBranch = errors.New("head branch missing on destination")

// Provider is the port interface for writing to a destination forge.
// Not-found lookups wrap domain.ErrNotFound so actions can branch on
// existence without parsing status codes.
type Provider interface {
	// Name returns the provider identifier (e.g. "github").
	Name() string

	// Repositories.
	GetRepo(ctx context.Context, owner, repo string) (*Repo, error)
	CreateRepo(ctx context.Context, org string, p CreateRepoParams) (*Repo, error)
	UpdateRepo(ctx context.Context, owner, repo string, p UpdateRepoParams) (*Repo, error)
	DeleteRepo(ctx context.Context, owner, repo string) error

	// Labels and milestones.
	GetLabel(ctx context.Context, owner, repo, name string) (*Label, error)
	CreateLabel(ctx context.Context, owner, repo string, l Label) (*Label, error)
	DeleteLabel(ctx context.Context, owner, repo, name string) error
	ListMilestones(ctx context.Context, owner, repo string) ([]Milestone, error)
	CreateMilestone(ctx context.Context, owner, repo string, p MilestoneParams) (*Milestone, error)
	DeleteMilestone(ctx context.Context, owner, repo string, number int64) error

	// Issues and pull requests.
	CreateIssue(ctx context.Context, owner, repo string, p IssueParams) (*Issue, error)
	UpdateIssueState(ctx context.Context, owner, repo string, number int64, state string) error
	CreateIssueComment(ctx context.Context, owner, repo string, number int64, body string) (*Comment, error)
	CreatePullRequest(ctx context.Context, owner, repo string, p PullRequestParams) (*PullRequest, error)

	// Releases.
	CreateRelease(ctx context.Context, owner, repo string, p ReleaseParams) (*Release, error)
	DeleteRelease(ctx context.Context, owner, repo string, id int64) error
	UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, name string, data []byte) error

	// Repository contents (workflow commits and the like).
	PutFile(ctx context.Context, owner, repo, path string, p CommitFileParams) error

	// Actions configuration. PutActionsSecret receives the plaintext
	// and the adapter seals it against the repository public key; the
	// plaintext is never logged.
	PutActionsSecret(ctx context.Context, owner, repo, name, value string) error
	PutActionsVariable(ctx context.Context, owner, repo, name, value string) error
	PutEnvironment(ctx context.Context, owner, repo, name string) error

	// Settings.
	PutBranchProtection(ctx context.Context, owner, repo, branch string, p BranchProtectionParams) error
	AddCollaborator(ctx context.Context, owner, repo, username, permission string) error
	CreateWebhook(ctx context.Context, owner, repo string, p WebhookParams) (int64, error)
	DeleteWebhook(ctx context.Context, owner, repo string, id int64) error
}
