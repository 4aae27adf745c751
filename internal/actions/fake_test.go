package actions_test

import (
	"context"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

var _ dest.Provider = (*fakeDest)(nil)

// fakeDest is an in-memory destination forge. Tests preload state,
// script failures per method, and inspect what was written.
type fakeDest struct {
	repos      map[string]*dest.Repo
	labels     map[string]dest.Label
	milestones map[string][]dest.Milestone
	files      map[string][]byte
	states     map[int64]string
	comments   map[int64][]string
	secretsSet map[string]string
	varsSet    map[string]string
	envs       []string
	protected  map[string]dest.BranchProtectionParams
	collabs    map[string]string
	webhooks   map[int64]dest.WebhookParams
	releases   map[int64]dest.ReleaseParams
	assets     map[string][]byte

	nextIssue   int64
	nextRelease int64
	nextWebhook int64

	missingHead bool
	failures    map[string]error
	calls       []string
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		repos:      map[string]*dest.Repo{},
		labels:     map[string]dest.Label{},
		milestones: map[string][]dest.Milestone{},
		files:      map[string][]byte{},
		states:     map[int64]string{},
		comments:   map[int64][]string{},
		secretsSet: map[string]string{},
		varsSet:    map[string]string{},
		protected:  map[string]dest.BranchProtectionParams{},
		collabs:    map[string]string{},
		webhooks:   map[int64]dest.WebhookParams{},
		releases:   map[int64]dest.ReleaseParams{},
		assets:     map[string][]byte{},

		nextIssue:   100,
		nextRelease: 9000,
		nextWebhook: 500,
		failures:    map[string]error{},
	}
}

func (f *fakeDest) record(method string) error {
	f.calls = append(f.calls, method)
	return f.failures[method]
}

func (f *fakeDest) called(method string) int {
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func key(owner, repo string) string { return owner + "/" + repo }

func (f *fakeDest) Name() string { return "fake" }

func (f *fakeDest) GetRepo(_ context.Context, owner, repo string) (*dest.Repo, error) {
	if err := f.record("GetRepo"); err != nil {
		return nil, err
	}
	if r, ok := f.repos[key(owner, repo)]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("fake repo %s/%s: %w", owner, repo, domain.ErrNotFound)
}

func (f *fakeDest) CreateRepo(_ context.Context, org string, p dest.CreateRepoParams) (*dest.Repo, error) {
	if err := f.record("CreateRepo"); err != nil {
		return nil, err
	}
	r := &dest.Repo{
		Name:     p.Name,
		FullName: org + "/" + p.Name,
		Private:  p.Private,
		HTMLURL:  "https://github.example.com/" + org + "/" + p.Name,
	}
	f.repos[key(org, p.Name)] = r
	return r, nil
}

func (f *fakeDest) UpdateRepo(_ context.Context, owner, repo string, _ dest.UpdateRepoParams) (*dest.Repo, error) {
	if err := f.record("UpdateRepo"); err != nil {
		return nil, err
	}
	return f.repos[key(owner, repo)], nil
}

func (f *fakeDest) DeleteRepo(_ context.Context, owner, repo string) error {
	if err := f.record("DeleteRepo"); err != nil {
		return err
	}
	delete(f.repos, key(owner, repo))
	return nil
}

func (f *fakeDest) GetLabel(_ context.Context, owner, repo, name string) (*dest.Label, error) {
	if err := f.record("GetLabel"); err != nil {
		return nil, err
	}
	if l, ok := f.labels[key(owner, repo)+"/"+name]; ok {
		return &l, nil
	}
	return nil, fmt.Errorf("fake label %q: %w", name, domain.ErrNotFound)
}

func (f *fakeDest) CreateLabel(_ context.Context, owner, repo string, l dest.Label) (*dest.Label, error) {
	if err := f.record("CreateLabel"); err != nil {
		return nil, err
	}
	f.labels[key(owner, repo)+"/"+l.Name] = l
	return &l, nil
}

func (f *fakeDest) DeleteLabel(_ context.Context, owner, repo, name string) error {
	if err := f.record("DeleteLabel"); err != nil {
		return err
	}
	delete(f.labels, key(owner, repo)+"/"+name)
	return nil
}

func (f *fakeDest) ListMilestones(_ context.Context, owner, repo string) ([]dest.Milestone, error) {
	if err := f.record("ListMilestones"); err != nil {
		return nil, err
	}
	return f.milestones[key(owner, repo)], nil
}

func (f *fakeDest) CreateMilestone(_ context.Context, owner, repo string, p dest.MilestoneParams) (*dest.Milestone, error) {
	if err := f.record("CreateMilestone"); err != nil {
		return nil, err
	}
	k := key(owner, repo)
	m := dest.Milestone{Number: int64(len(f.milestones[k]) + 1), Title: p.Title, State: p.State}
	f.milestones[k] = append(f.milestones[k], m)
	return &m, nil
}

func (f *fakeDest) DeleteMilestone(_ context.Context, owner, repo string, number int64) error {
	if err := f.record("DeleteMilestone"); err != nil {
		return err
	}
	k := key(owner, repo)
	kept := f.milestones[k][:0]
	for _, m := range f.milestones[k] {
		if m.Number != number {
			kept = append(kept, m)
		}
	}
	f.milestones[k] = kept
	return nil
}

func (f *fakeDest) CreateIssue(_ context.Context, owner, repo string, p dest.IssueParams) (*dest.Issue, error) {
	if err := f.record("CreateIssue"); err != nil {
		return nil, err
	}
	f.nextIssue++
	return &dest.Issue{
		Number:  f.nextIssue,
		HTMLURL: fmt.Sprintf("https://github.example.com/%s/%s/issues/%d", owner, repo, f.nextIssue),
	}, nil
}

func (f *fakeDest) UpdateIssueState(_ context.Context, _, _ string, number int64, state string) error {
	if err := f.record("UpdateIssueState"); err != nil {
		return err
	}
	f.states[number] = state
	return nil
}

func (f *fakeDest) CreateIssueComment(_ context.Context, _, _ string, number int64, body string) (*dest.Comment, error) {
	if err := f.record("CreateIssueComment"); err != nil {
		return nil, err
	}
	f.comments[number] = append(f.comments[number], body)
	return &dest.Comment{ID: int64(len(f.comments[number]))}, nil
}

func (f *fakeDest) CreatePullRequest(_ context.Context, owner, repo string, p dest.PullRequestParams) (*dest.PullRequest, error) {
	if err := f.record("CreatePullRequest"); err != nil {
		return nil, err
	}
	if f.missingHead {
		return nil, fmt.Errorf("fake pull request %q: %w", p.Head, dest.ErrMissingHeadBranch)
	}
	f.nextIssue++
	return &dest.PullRequest{
		Number:  f.nextIssue,
		HTMLURL: fmt.Sprintf("https://github.example.com/%s/%s/pull/%d", owner, repo, f.nextIssue),
	}, nil
}

func (f *fakeDest) CreateRelease(_ context.Context, _, _ string, p dest.ReleaseParams) (*dest.Release, error) {
	if err := f.record("CreateRelease"); err != nil {
		return nil, err
	}
	f.nextRelease++
	f.releases[f.nextRelease] = p
	return &dest.Release{ID: f.nextRelease, TagName: p.TagName}, nil
}

func (f *fakeDest) DeleteRelease(_ context.Context, _, _ string, id int64) error {
	if err := f.record("DeleteRelease"); err != nil {
		return err
	}
	delete(f.releases, id)
	return nil
}

func (f *fakeDest) UploadReleaseAsset(_ context.Context, _, _ string, releaseID int64, name string, data []byte) error {
	if err := f.record("UploadReleaseAsset"); err != nil {
		return err
	}
	f.assets[fmt.Sprintf("%d/%s", releaseID, name)] = data
	return nil
}

func (f *fakeDest) PutFile(_ context.Context, owner, repo, path string, p dest.CommitFileParams) error {
	if err := f.record("PutFile"); err != nil {
		return err
	}
	f.files[key(owner, repo)+"/"+path] = p.Content
	return nil
}

func (f *fakeDest) PutActionsSecret(_ context.Context, _, _ string, name, value string) error {
	if err := f.record("PutActionsSecret"); err != nil {
		return err
	}
	f.secretsSet[name] = value
	return nil
}

func (f *fakeDest) PutActionsVariable(_ context.Context, _, _ string, name, value string) error {
	if err := f.record("PutActionsVariable"); err != nil {
		return err
	}
	f.varsSet[name] = value
	return nil
}

func (f *fakeDest) PutEnvironment(_ context.Context, _, _ string, name string) error {
	if err := f.record("PutEnvironment"); err != nil {
		return err
	}
	f.envs = append(f.envs, name)
	return nil
}

func (f *fakeDest) PutBranchProtection(_ context.Context, owner, repo, branch string, p dest.BranchProtectionParams) error {
	if err := f.record("PutBranchProtection"); err != nil {
		return err
	}
	f.protected[key(owner, repo)+"/"+branch] = p
	return nil
}

func (f *fakeDest) AddCollaborator(_ context.Context, _, _ string, username, permission string) error {
	if err := f.record("AddCollaborator"); err != nil {
		return err
	}
	f.collabs[username] = permission
	return nil
}

func (f *fakeDest) CreateWebhook(_ context.Context, _, _ string, p dest.WebhookParams) (int64, error) {
	if err := f.record("CreateWebhook"); err != nil {
		return 0, err
	}
	f.nextWebhook++
	f.webhooks[f.nextWebhook] = p
	return f.nextWebhook, nil
}

func (f *fakeDest) DeleteWebhook(_ context.Context, _, _ string, id int64) error {
	if err := f.record("DeleteWebhook"); err != nil {
		return err
	}
	delete(f.webhooks, id)
	return nil
}
