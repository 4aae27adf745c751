package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/llm"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// fakeSource is an in-memory source.Provider backed by fixture maps.
// Per-project maps key on the project id; files key on
// "<projectID>:<ref>:<path>". A method listed in fail returns its
// error. With a budget wired in, every call registers against it the
// way the real forge client does and returns the budget sentinel once
// it is spent.
type fakeSource struct {
	mu sync.Mutex

	caps    source.Capabilities
	version string

	groups        []source.Group
	subgroups     map[int64][]source.Group
	groupProjects map[int64][]source.Project
	projectByPath map[string]*source.Project

	files map[string][]byte
	tree  map[int64][]source.TreeEntry

	branches          map[int64][]source.Branch
	tags              map[int64][]source.Tag
	protectedBranches map[int64][]source.ProtectedBranch
	protectedTags     map[int64][]source.ProtectedTag

	projectVars  map[int64][]source.Variable
	groupVars    map[int64][]source.Variable
	schedules    map[int64][]source.PipelineSchedule
	environments map[int64][]source.Environment
	pipelines    map[int64][]source.Pipeline

	labels     map[int64][]source.Label
	milestones map[int64][]source.Milestone
	issues     map[int64][]source.Issue
	issueNotes map[int64][]source.Note

	mrs           map[int64][]source.MergeRequest
	mrDiscussions map[int64][]source.Discussion
	mrChanges     map[int64][]source.FileDiff
	approvals     map[int64]*source.ApprovalStatus

	wikiPages    map[int64][]source.WikiPage
	releases     map[int64][]source.Release
	packages     map[int64][]source.Package
	packageFiles map[int64][]source.PackageFile

	members      map[int64][]source.Member
	webhooks     map[int64][]source.Webhook
	deployKeys   map[int64][]source.DeployKey
	deployTokens map[int64][]source.DeployToken

	mrCounts    map[string]fakeCount
	issueCounts map[string]fakeCount

	fail   map[string]error
	budget *forgehttp.Budget
	calls  map[string]int
}

type fakeCount struct {
	n     int
	exact bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		caps: source.Capabilities{
			Wiki: true, Releases: true, Packages: true,
			Pipelines: true, Environments: true, ApprovalRules: true,
		},
		version:       "17.4.0",
		subgroups:         map[int64][]source.Group{},
		groupProjects:     map[int64][]source.Project{},
		projectByPath:     map[string]*source.Project{},
		files:             map[string][]byte{},
		tree:              map[int64][]source.TreeEntry{},
		branches:          map[int64][]source.Branch{},
		tags:              map[int64][]source.Tag{},
		protectedBranches: map[int64][]source.ProtectedBranch{},
		protectedTags:     map[int64][]source.ProtectedTag{},
		projectVars:       map[int64][]source.Variable{},
		groupVars:         map[int64][]source.Variable{},
		schedules:         map[int64][]source.PipelineSchedule{},
		environments:      map[int64][]source.Environment{},
		pipelines:         map[int64][]source.Pipeline{},
		labels:            map[int64][]source.Label{},
		milestones:        map[int64][]source.Milestone{},
		issues:            map[int64][]source.Issue{},
		issueNotes:        map[int64][]source.Note{},
		mrs:               map[int64][]source.MergeRequest{},
		mrDiscussions:     map[int64][]source.Discussion{},
		mrChanges:         map[int64][]source.FileDiff{},
		approvals:         map[int64]*source.ApprovalStatus{},
		wikiPages:         map[int64][]source.WikiPage{},
		releases:          map[int64][]source.Release{},
		packages:          map[int64][]source.Package{},
		packageFiles:      map[int64][]source.PackageFile{},
		members:           map[int64][]source.Member{},
		webhooks:          map[int64][]source.Webhook{},
		deployKeys:        map[int64][]source.DeployKey{},
		deployTokens:      map[int64][]source.DeployToken{},
		mrCounts:          map[string]fakeCount{},
		issueCounts:       map[string]fakeCount{},
		fail:              map[string]error{},
		calls:             map[string]int{},
	}
}

// addProject registers a project under both its path and its numeric
// id so GetProject works either way, like the forge.
func (f *fakeSource) addProject(p source.Project) {
	cp := p
	f.projectByPath[p.PathWithNamespace] = &cp
	f.projectByPath[fmt.Sprintf("%d", p.ID)] = &cp
}

func (f *fakeSource) setFile(projectID int64, ref, path string, content []byte) {
	f.files[fmt.Sprintf("%d:%s:%s", projectID, ref, path)] = content
}

func (f *fakeSource) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSource) step(method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.fail[method]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if f.budget != nil && !f.budget.Register() {
		return domain.ErrBudgetExhausted
	}
	return nil
}

func (f *fakeSource) Name() string                     { return "fake" }
func (f *fakeSource) Capabilities() source.Capabilities { return f.caps }

func (f *fakeSource) HealthCheck(context.Context) (string, error) {
	if err := f.step("HealthCheck"); err != nil {
		return "", err
	}
	return f.version, nil
}

func (f *fakeSource) GetProject(_ context.Context, path string) (*source.Project, error) {
	if err := f.step("GetProject"); err != nil {
		return nil, err
	}
	p, ok := f.projectByPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSource) GetGroup(_ context.Context, path string) (*source.Group, error) {
	if err := f.step("GetGroup"); err != nil {
		return nil, err
	}
	for i := range f.groups {
		if f.groups[i].FullPath == path {
			g := f.groups[i]
			return &g, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSource) ListGroups(context.Context) ([]source.Group, error) {
	if err := f.step("ListGroups"); err != nil {
		return nil, err
	}
	return f.groups, nil
}

func (f *fakeSource) ListSubgroups(_ context.Context, groupID int64) ([]source.Group, error) {
	if err := f.step("ListSubgroups"); err != nil {
		return nil, err
	}
	return f.subgroups[groupID], nil
}

func (f *fakeSource) ListGroupProjects(_ context.Context, groupID int64) ([]source.Project, error) {
	if err := f.step("ListGroupProjects"); err != nil {
		return nil, err
	}
	return f.groupProjects[groupID], nil
}

func (f *fakeSource) RawFile(_ context.Context, projectID int64, ref, path string) ([]byte, bool, error) {
	if err := f.step("RawFile"); err != nil {
		return nil, false, err
	}
	content, ok := f.files[fmt.Sprintf("%d:%s:%s", projectID, ref, path)]
	return content, ok, nil
}

func (f *fakeSource) ListTree(_ context.Context, projectID int64, _, _ string) ([]source.TreeEntry, error) {
	if err := f.step("ListTree"); err != nil {
		return nil, err
	}
	return f.tree[projectID], nil
}

func (f *fakeSource) CountMergeRequests(_ context.Context, projectID int64, state string, _ int) (int, bool, error) {
	if err := f.step("CountMergeRequests"); err != nil {
		return 0, false, err
	}
	c := f.mrCounts[fmt.Sprintf("%d:%s", projectID, state)]
	return c.n, c.exact, nil
}

func (f *fakeSource) CountIssues(_ context.Context, projectID int64, state string, _ int) (int, bool, error) {
	if err := f.step("CountIssues"); err != nil {
		return 0, false, err
	}
	c := f.issueCounts[fmt.Sprintf("%d:%s", projectID, state)]
	return c.n, c.exact, nil
}

func (f *fakeSource) ListBranches(_ context.Context, projectID int64) ([]source.Branch, error) {
	if err := f.step("ListBranches"); err != nil {
		return nil, err
	}
	return f.branches[projectID], nil
}

func (f *fakeSource) ListTags(_ context.Context, projectID int64) ([]source.Tag, error) {
	if err := f.step("ListTags"); err != nil {
		return nil, err
	}
	return f.tags[projectID], nil
}

func (f *fakeSource) ListProtectedBranches(_ context.Context, projectID int64) ([]source.ProtectedBranch, error) {
	if err := f.step("ListProtectedBranches"); err != nil {
		return nil, err
	}
	return f.protectedBranches[projectID], nil
}

func (f *fakeSource) ListProtectedTags(_ context.Context, projectID int64) ([]source.ProtectedTag, error) {
	if err := f.step("ListProtectedTags"); err != nil {
		return nil, err
	}
	return f.protectedTags[projectID], nil
}

func (f *fakeSource) ListProjectVariables(_ context.Context, projectID int64) ([]source.Variable, error) {
	if err := f.step("ListProjectVariables"); err != nil {
		return nil, err
	}
	return f.projectVars[projectID], nil
}

func (f *fakeSource) ListGroupVariables(_ context.Context, groupID int64) ([]source.Variable, error) {
	if err := f.step("ListGroupVariables"); err != nil {
		return nil, err
	}
	return f.groupVars[groupID], nil
}

func (f *fakeSource) ListPipelineSchedules(_ context.Context, projectID int64) ([]source.PipelineSchedule, error) {
	if err := f.step("ListPipelineSchedules"); err != nil {
		return nil, err
	}
	return f.schedules[projectID], nil
}

func (f *fakeSource) ListEnvironments(_ context.Context, projectID int64) ([]source.Environment, error) {
	if err := f.step("ListEnvironments"); err != nil {
		return nil, err
	}
	return f.environments[projectID], nil
}

func (f *fakeSource) ListPipelines(_ context.Context, projectID int64, limit int) ([]source.Pipeline, error) {
	if err := f.step("ListPipelines"); err != nil {
		return nil, err
	}
	pipelines := f.pipelines[projectID]
	if limit > 0 && len(pipelines) > limit {
		pipelines = pipelines[:limit]
	}
	return pipelines, nil
}

func (f *fakeSource) ListLabels(_ context.Context, projectID int64) ([]source.Label, error) {
	if err := f.step("ListLabels"); err != nil {
		return nil, err
	}
	return f.labels[projectID], nil
}

func (f *fakeSource) ListMilestones(_ context.Context, projectID int64) ([]source.Milestone, error) {
	if err := f.step("ListMilestones"); err != nil {
		return nil, err
	}
	return f.milestones[projectID], nil
}

func (f *fakeSource) ListIssues(_ context.Context, projectID int64) ([]source.Issue, error) {
	if err := f.step("ListIssues"); err != nil {
		return nil, err
	}
	return f.issues[projectID], nil
}

func (f *fakeSource) ListIssueNotes(_ context.Context, _, issueIID int64) ([]source.Note, error) {
	if err := f.step("ListIssueNotes"); err != nil {
		return nil, err
	}
	return f.issueNotes[issueIID], nil
}

func (f *fakeSource) ListMergeRequests(_ context.Context, projectID int64) ([]source.MergeRequest, error) {
	if err := f.step("ListMergeRequests"); err != nil {
		return nil, err
	}
	return f.mrs[projectID], nil
}

func (f *fakeSource) ListMRDiscussions(_ context.Context, _, mrIID int64) ([]source.Discussion, error) {
	if err := f.step("ListMRDiscussions"); err != nil {
		return nil, err
	}
	return f.mrDiscussions[mrIID], nil
}

func (f *fakeSource) ListMRChanges(_ context.Context, _, mrIID int64) ([]source.FileDiff, error) {
	if err := f.step("ListMRChanges"); err != nil {
		return nil, err
	}
	return f.mrChanges[mrIID], nil
}

func (f *fakeSource) GetMRApprovals(_ context.Context, _, mrIID int64) (*source.ApprovalStatus, error) {
	if err := f.step("GetMRApprovals"); err != nil {
		return nil, err
	}
	if a, ok := f.approvals[mrIID]; ok {
		return a, nil
	}
	return &source.ApprovalStatus{}, nil
}

func (f *fakeSource) ListWikiPages(_ context.Context, projectID int64) ([]source.WikiPage, error) {
	if err := f.step("ListWikiPages"); err != nil {
		return nil, err
	}
	return f.wikiPages[projectID], nil
}

func (f *fakeSource) GetWikiPage(_ context.Context, projectID int64, slug string) (*source.WikiPage, error) {
	if err := f.step("GetWikiPage"); err != nil {
		return nil, err
	}
	for _, page := range f.wikiPages[projectID] {
		if page.Slug == slug {
			cp := page
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSource) ListReleases(_ context.Context, projectID int64) ([]source.Release, error) {
	if err := f.step("ListReleases"); err != nil {
		return nil, err
	}
	return f.releases[projectID], nil
}

func (f *fakeSource) ListPackages(_ context.Context, projectID int64) ([]source.Package, error) {
	if err := f.step("ListPackages"); err != nil {
		return nil, err
	}
	return f.packages[projectID], nil
}

func (f *fakeSource) ListPackageFiles(_ context.Context, _, packageID int64) ([]source.PackageFile, error) {
	if err := f.step("ListPackageFiles"); err != nil {
		return nil, err
	}
	return f.packageFiles[packageID], nil
}

func (f *fakeSource) ListMembers(_ context.Context, projectID int64) ([]source.Member, error) {
	if err := f.step("ListMembers"); err != nil {
		return nil, err
	}
	return f.members[projectID], nil
}

func (f *fakeSource) ListWebhooks(_ context.Context, projectID int64) ([]source.Webhook, error) {
	if err := f.step("ListWebhooks"); err != nil {
		return nil, err
	}
	return f.webhooks[projectID], nil
}

func (f *fakeSource) ListDeployKeys(_ context.Context, projectID int64) ([]source.DeployKey, error) {
	if err := f.step("ListDeployKeys"); err != nil {
		return nil, err
	}
	return f.deployKeys[projectID], nil
}

func (f *fakeSource) ListDeployTokens(_ context.Context, projectID int64) ([]source.DeployToken, error) {
	if err := f.step("ListDeployTokens"); err != nil {
		return nil, err
	}
	return f.deployTokens[projectID], nil
}

// fakeModel is a canned llm.Client.
type fakeModel struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	prompts []string
}

func (m *fakeModel) Complete(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, req.Prompt)
	return m.answer, m.err
}

// fakeCache is an in-memory cache.Cache.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Close() error { return nil }
