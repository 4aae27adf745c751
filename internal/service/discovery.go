package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Strob0t/ForgeShift/internal/adapter/otel"
	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
	"github.com/Strob0t/ForgeShift/internal/domain/state"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// Discovery step kinds, in planner priority order.
const (
	stepHealthCheck     = "health_check"
	stepResolveProject  = "resolve_project"
	stepListAllGroups   = "list_all_groups"
	stepResolveGroup    = "resolve_group"
	stepListSubgroups   = "list_subgroups"
	stepListProjects    = "list_projects"
	stepDetectCI        = "detect_ci"
	stepDetectLFS       = "detect_lfs"
	stepGetMRCounts     = "get_mr_counts"
	stepGetIssueCounts  = "get_issue_counts"
	stepCompleteProject = "complete_project"
	stepDone            = "done"
)

// lightModeCeiling caps per-state enumeration when the forge does not
// return a total header; a count that hits it is reported ">N".
const lightModeCeiling = 1000

// discoveryStep is one planned unit of discovery work.
type discoveryStep struct {
	Kind      string
	GroupID   int64
	ProjectID int64
}

// DiscoveryOptions configures a discovery run.
type DiscoveryOptions struct {
	BaseURL            string
	RootGroup          string
	ProjectPath        string
	MaxAPICalls        int
	MaxPerProjectCalls int

	Logger  *slog.Logger
	Tracker *Tracker
	Metrics *otel.Metrics
}

// Discovery walks a source forge and produces a validated inventory.
// It is strictly read-only: every forge access goes through the
// source port, which exposes no write operation.
type Discovery struct {
	src    source.Provider
	budget *forgehttp.Budget
	opts   DiscoveryOptions
	log    *slog.Logger

	state           *state.AgentState
	projectResolved bool
}

// NewDiscovery builds a discovery agent. The budget must be the one
// the provider's forge client accounts against, so that the planner's
// view of spend matches the transport's.
func NewDiscovery(src source.Provider, budget *forgehttp.Budget, opts DiscoveryOptions) *Discovery {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxAPICalls <= 0 {
		opts.MaxAPICalls = 5000
	}
	if opts.MaxPerProjectCalls <= 0 {
		opts.MaxPerProjectCalls = 200
	}

	mode := state.ModeDiscoverAll
	switch {
	case opts.ProjectPath != "":
		mode = state.ModeSingleProject
	case opts.RootGroup != "":
		mode = state.ModeRootGroup
	}

	d := &Discovery{
		src:    src,
		budget: budget,
		opts:   opts,
		log:    log.With("service", "discovery"),
		state:  state.New(mode, opts.MaxAPICalls, opts.MaxPerProjectCalls),
	}
	d.state.RootGroupPath = opts.RootGroup
	d.state.ProjectPath = opts.ProjectPath
	return d
}

// State exposes the run state for the deep analyzer and for tests.
func (d *Discovery) State() *state.AgentState { return d.state }

// Run executes the planner/executor loop until the work queue drains
// or the API budget is spent, then folds the state into an inventory.
// The inventory is built at whatever completeness was reached, even
// when the run ended on the budget ceiling.
func (d *Discovery) Run(ctx context.Context) (*inventory.Inventory, error) {
	started := time.Now().UTC()
	s := d.state

	// A pathological planner cycle must not spin forever; every
	// productive iteration spends at least one call in the worst case.
	maxIterations := 2 * s.MaxAPICalls

	for i := 0; i < maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			d.log.Warn("discovery cancelled", "iterations", i)
			break
		}
		if s.BudgetExceeded {
			break
		}

		step := d.plan()
		if step.Kind == stepDone {
			break
		}
		if err := d.execute(ctx, step); err != nil {
			if errors.Is(err, domain.ErrBudgetExhausted) {
				s.BudgetExceeded = true
				d.log.Warn("api budget exhausted",
					"total_calls", d.budget.Total(), "max", s.MaxAPICalls)
				break
			}
			return nil, fmt.Errorf("discovery step %s: %w", step.Kind, err)
		}
		d.progress(ctx, step)
	}

	inv := d.buildInventory(started)
	return inv, nil
}

// plan produces the next step from the run state, in fixed priority
// order. It never mutates the state.
func (d *Discovery) plan() discoveryStep {
	s := d.state

	if !s.HealthChecked {
		return discoveryStep{Kind: stepHealthCheck}
	}
	if s.Mode == state.ModeSingleProject && !d.projectResolved {
		return discoveryStep{Kind: stepResolveProject}
	}
	if s.Mode == state.ModeDiscoverAll && !s.AllGroupsListed {
		return discoveryStep{Kind: stepListAllGroups}
	}
	if s.Mode == state.ModeRootGroup && s.RootGroupID == 0 {
		return discoveryStep{Kind: stepResolveGroup}
	}

	for _, id := range s.PendingGroups {
		g := s.Groups[id]
		if !g.SubgroupsListed {
			return discoveryStep{Kind: stepListSubgroups, GroupID: id}
		}
		if !g.ProjectsListed {
			return discoveryStep{Kind: stepListProjects, GroupID: id}
		}
	}

	for _, id := range s.PendingProjects {
		p := s.Projects[id]
		if p.FactsComplete() || !s.ProjectBudgetLeft(p) {
			return discoveryStep{Kind: stepCompleteProject, ProjectID: id}
		}
		switch {
		case !p.CIDone:
			return discoveryStep{Kind: stepDetectCI, ProjectID: id}
		case !p.LFSDone:
			return discoveryStep{Kind: stepDetectLFS, ProjectID: id}
		case !p.MRCountsDone:
			return discoveryStep{Kind: stepGetMRCounts, ProjectID: id}
		default:
			return discoveryStep{Kind: stepGetIssueCounts, ProjectID: id}
		}
	}

	return discoveryStep{Kind: stepDone}
}

// execute dispatches one step and mutates the run state with its
// outcome. Per-project failures are recorded on the project and do not
// abort the run; failures before any project exists are fatal.
func (d *Discovery) execute(ctx context.Context, step discoveryStep) error {
	s := d.state

	switch step.Kind {
	case stepHealthCheck:
		version, err := d.src.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		s.HealthChecked = true
		d.log.Info("source forge reachable", "version", version)
		return nil

	case stepResolveProject:
		proj, err := d.src.GetProject(ctx, s.ProjectPath)
		if err != nil {
			return fmt.Errorf("resolve project %q: %w", s.ProjectPath, err)
		}
		d.projectResolved = true
		d.addProject(proj, 0)
		return nil

	case stepListAllGroups:
		groups, err := d.src.ListGroups(ctx)
		if err != nil {
			return fmt.Errorf("list groups: %w", err)
		}
		s.AllGroupsListed = true
		for _, g := range groups {
			s.AddGroup(g.ID, g.FullPath)
		}
		d.log.Info("top-level groups listed", "count", len(groups))
		return nil

	case stepResolveGroup:
		g, err := d.src.GetGroup(ctx, s.RootGroupPath)
		if err != nil {
			return fmt.Errorf("resolve group %q: %w", s.RootGroupPath, err)
		}
		s.RootGroupID = g.ID
		s.AddGroup(g.ID, g.FullPath)
		return nil

	case stepListSubgroups:
		g := s.Groups[step.GroupID]
		subs, err := d.src.ListSubgroups(ctx, g.ID)
		if err != nil {
			if errors.Is(err, domain.ErrBudgetExhausted) {
				return err
			}
			d.log.Warn("subgroup listing failed", "group", g.FullPath, "error", err)
		}
		g.SubgroupsListed = true
		for _, sub := range subs {
			g.SubgroupIDs = append(g.SubgroupIDs, sub.ID)
			s.AddGroup(sub.ID, sub.FullPath)
		}
		d.maybeCompleteGroup(g)
		return nil

	case stepListProjects:
		g := s.Groups[step.GroupID]
		projects, err := d.src.ListGroupProjects(ctx, g.ID)
		if err != nil {
			if errors.Is(err, domain.ErrBudgetExhausted) {
				return err
			}
			d.log.Warn("project listing failed", "group", g.FullPath, "error", err)
		}
		g.ProjectsListed = true
		for i := range projects {
			g.ProjectIDs = append(g.ProjectIDs, projects[i].ID)
			d.addProject(&projects[i], g.ID)
		}
		d.maybeCompleteGroup(g)
		return nil

	case stepDetectCI:
		return d.detectCI(ctx, s.Projects[step.ProjectID])

	case stepDetectLFS:
		return d.detectLFS(ctx, s.Projects[step.ProjectID])

	case stepGetMRCounts:
		return d.countMRs(ctx, s.Projects[step.ProjectID])

	case stepGetIssueCounts:
		return d.countIssues(ctx, s.Projects[step.ProjectID])

	case stepCompleteProject:
		return s.CompleteProject(step.ProjectID)
	}

	return fmt.Errorf("unknown discovery step %q", step.Kind)
}

func (d *Discovery) maybeCompleteGroup(g *state.GroupState) {
	if g.SubgroupsListed && g.ProjectsListed {
		d.state.CompleteGroup(g.ID)
	}
}

func (d *Discovery) addProject(p *source.Project, groupID int64) {
	ps := &state.ProjectState{
		ID:                p.ID,
		PathWithNamespace: p.PathWithNamespace,
		DefaultBranch:     p.DefaultBranch,
		Archived:          p.Archived,
		Visibility:        inventory.Visibility(p.Visibility),
		GroupID:           groupID,
		LFSEnabled:        p.LFSEnabled,
		MRCounts:          inventory.MRCounts{Unknown: true},
		IssueCounts:       inventory.IssueCounts{Unknown: true},
	}
	if d.state.AddProject(ps) == ps && d.opts.Metrics != nil {
		d.opts.Metrics.ProjectsDiscovered.Add(context.Background(), 1)
	}
}

// detectCI probes the default branch for a pipeline definition.
func (d *Discovery) detectCI(ctx context.Context, p *state.ProjectState) error {
	p.CIDone = true
	if p.DefaultBranch == "" {
		// Nothing to probe against; an empty repository has no CI.
		p.HasCI = inventory.False()
		return nil
	}

	p.APICallsUsed++
	_, found, err := d.src.RawFile(ctx, p.ID, p.DefaultBranch, ".gitlab-ci.yml")
	if err != nil {
		return d.recordFactError(p, stepDetectCI, err)
	}
	p.HasCI = inventory.Tristate{Known: true, Value: found}
	return nil
}

// detectLFS probes .gitattributes for an lfs filter; when the file is
// absent the project-level flag decides.
func (d *Discovery) detectLFS(ctx context.Context, p *state.ProjectState) error {
	p.LFSDone = true
	if p.DefaultBranch == "" {
		p.HasLFS = inventory.Tristate{Known: true, Value: p.LFSEnabled}
		return nil
	}

	p.APICallsUsed++
	content, found, err := d.src.RawFile(ctx, p.ID, p.DefaultBranch, ".gitattributes")
	if err != nil {
		return d.recordFactError(p, stepDetectLFS, err)
	}
	if !found {
		p.HasLFS = inventory.Tristate{Known: true, Value: p.LFSEnabled}
		return nil
	}
	p.HasLFS = inventory.Tristate{Known: true, Value: strings.Contains(string(content), "filter=lfs")}
	return nil
}

// countMRs gathers merge request totals, one call per state. The
// per-project accounting charges all three even when the forge
// short-circuits via a total header; a documented approximation.
func (d *Discovery) countMRs(ctx context.Context, p *state.ProjectState) error {
	p.MRCountsDone = true
	counts := inventory.MRCounts{}
	for _, mrState := range []string{"opened", "merged", "closed"} {
		p.APICallsUsed++
		n, exact, err := d.src.CountMergeRequests(ctx, p.ID, mrState, lightModeCeiling)
		if err != nil {
			p.MRCounts = inventory.MRCounts{Unknown: true}
			return d.recordFactError(p, stepGetMRCounts, err)
		}
		c := inventory.ExactCount(n)
		if !exact {
			c = inventory.CappedCount(n)
		}
		switch mrState {
		case "opened":
			counts.Opened = c
		case "merged":
			counts.Merged = c
		case "closed":
			counts.Closed = c
		}
	}
	p.MRCounts = counts
	return nil
}

// countIssues gathers issue totals, one call per state.
func (d *Discovery) countIssues(ctx context.Context, p *state.ProjectState) error {
	p.IssueCountsDone = true
	counts := inventory.IssueCounts{}
	for _, issueState := range []string{"opened", "closed"} {
		p.APICallsUsed++
		n, exact, err := d.src.CountIssues(ctx, p.ID, issueState, lightModeCeiling)
		if err != nil {
			p.IssueCounts = inventory.IssueCounts{Unknown: true}
			return d.recordFactError(p, stepGetIssueCounts, err)
		}
		c := inventory.ExactCount(n)
		if !exact {
			c = inventory.CappedCount(n)
		}
		if issueState == "opened" {
			counts.Opened = c
		} else {
			counts.Closed = c
		}
	}
	p.IssueCounts = counts
	return nil
}

// recordFactError attaches a step failure to the project and keeps the
// run going. Budget exhaustion is the one failure that must surface:
// it ends the whole run, not just this fact.
func (d *Discovery) recordFactError(p *state.ProjectState, step string, err error) error {
	if errors.Is(err, domain.ErrBudgetExhausted) {
		return err
	}

	pe := inventory.ProjectError{
		Step:     step,
		Category: string(domain.CategoryOf(err)),
		Message:  err.Error(),
	}
	if fe, ok := forgehttp.AsError(err); ok {
		pe.Status = fe.Status
		pe.Category = string(fe.Category)
	}
	d.state.RecordProjectError(p.ID, pe)
	d.log.Warn("fact gathering failed",
		"project", p.PathWithNamespace, "step", step, "error", err)
	return nil
}

func (d *Discovery) progress(ctx context.Context, step discoveryStep) {
	if d.opts.Tracker == nil {
		return
	}
	s := d.state
	current := ""
	if p, ok := s.Projects[step.ProjectID]; ok && step.ProjectID != 0 {
		current = p.PathWithNamespace
	}
	d.opts.Tracker.Discovery(ctx, len(s.Groups), len(s.Projects),
		len(s.CompletedProjects), d.budget.Total(), current)
}

// buildInventory folds the run state into the output document and runs
// the readiness post-pass. Sorting keeps repeated runs byte-comparable
// apart from timestamps and call totals.
func (d *Discovery) buildInventory(started time.Time) *inventory.Inventory {
	s := d.state

	inv := &inventory.Inventory{
		Run: inventory.Run{
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
			BaseURL:    d.opts.BaseURL,
			RootGroup:  d.opts.RootGroup,
			Stats: inventory.RunStats{
				Groups:   len(s.Groups),
				Projects: len(s.Projects),
				Errors:   s.ErrorCount(),
				APICalls: d.budget.Total(),
			},
		},
		Groups:   make([]inventory.Group, 0, len(s.Groups)),
		Projects: make([]inventory.Project, 0, len(s.Projects)),
	}

	for _, g := range s.Groups {
		ids := g.ProjectIDs
		if ids == nil {
			ids = []int64{}
		}
		inv.Groups = append(inv.Groups, inventory.Group{
			ID:       g.ID,
			FullPath: g.FullPath,
			Projects: ids,
		})
	}

	for _, p := range s.Projects {
		proj := inventory.Project{
			ID:                p.ID,
			PathWithNamespace: p.PathWithNamespace,
			DefaultBranch:     p.DefaultBranch,
			Archived:          p.Archived,
			Visibility:        p.Visibility,
			GroupID:           p.GroupID,
			Facts: inventory.Facts{
				HasCI:       p.HasCI,
				HasLFS:      p.HasLFS,
				MRCounts:    p.MRCounts,
				IssueCounts: p.IssueCounts,
			},
			Errors: p.Errors,
		}
		if proj.Errors == nil {
			proj.Errors = []inventory.ProjectError{}
		}
		proj.Readiness = inventory.ComputeReadiness(&proj)
		inv.Projects = append(inv.Projects, proj)
	}

	inv.Sort()
	return inv
}
