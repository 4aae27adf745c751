// Package state holds the mutable, run-scoped bookkeeping of a
// discovery run: the group walk, per-project fact progress, and the
// API budget position. The planner reads it, the executor mutates it,
// and a finished run is folded into an inventory document.
package state

import (
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

// Mode selects what a discovery run scans.
type Mode string

const (
	ModeSingleProject Mode = "single-project"
	ModeRootGroup     Mode = "root-group"
	ModeDiscoverAll   Mode = "discover-all"
)

// GroupState tracks one group during the walk.
type GroupState struct {
	ID              int64
	FullPath        string
	SubgroupsListed bool
	ProjectsListed  bool
	SubgroupIDs     []int64
	ProjectIDs      []int64
}

// ProjectState tracks fact gathering for one project. The done flags
// drive the fixed fact order; a fact may be done yet unknown when the
// probe was denied.
type ProjectState struct {
	ID                int64
	PathWithNamespace string
	DefaultBranch     string
	Archived          bool
	Visibility        inventory.Visibility
	GroupID           int64

	// LFSEnabled is the project-level flag the forge reports. It only
	// decides has_lfs when the repository has no .gitattributes to
	// inspect.
	LFSEnabled bool

	CIDone          bool
	LFSDone         bool
	MRCountsDone    bool
	IssueCountsDone bool

	HasCI       inventory.Tristate
	HasLFS      inventory.Tristate
	MRCounts    inventory.MRCounts
	IssueCounts inventory.IssueCounts

	Errors       []inventory.ProjectError
	APICallsUsed int
}

// FactsComplete reports whether every fact in the fixed order has been
// attempted.
func (p *ProjectState) FactsComplete() bool {
	return p.CIDone && p.LFSDone && p.MRCountsDone && p.IssueCountsDone
}

// AgentState is the complete mutable state of one discovery run. It is
// owned by the serial planner/executor loop and never shared across
// goroutines.
type AgentState struct {
	Mode          Mode
	RootGroupPath string
	ProjectPath   string

	RootGroupID     int64
	AllGroupsListed bool
	HealthChecked   bool

	Groups   map[int64]*GroupState
	Projects map[int64]*ProjectState

	PendingGroups     []int64
	CompletedGroups   []int64
	PendingProjects   []int64
	CompletedProjects []int64

	TotalAPICalls      int
	MaxAPICalls        int
	MaxPerProjectCalls int
	BudgetExceeded     bool
}

// New builds an empty run state for the given mode and budgets.
func New(mode Mode, maxAPICalls, maxPerProjectCalls int) *AgentState {
	return &AgentState{
		Mode:               mode,
		Groups:             make(map[int64]*GroupState),
		Projects:           make(map[int64]*ProjectState),
		MaxAPICalls:        maxAPICalls,
		MaxPerProjectCalls: maxPerProjectCalls,
	}
}

// AddGroup registers a newly discovered group and queues it for
// listing. Re-adding a known group is a no-op.
func (s *AgentState) AddGroup(id int64, fullPath string) *GroupState {
	if g, ok := s.Groups[id]; ok {
		return g
	}
	g := &GroupState{ID: id, FullPath: fullPath}
	s.Groups[id] = g
	s.PendingGroups = append(s.PendingGroups, id)
	return g
}

// AddProject registers a newly discovered project and queues it for
// fact gathering. A project is pending from the moment it is added
// until CompleteProject moves it; it is never in both queues.
func (s *AgentState) AddProject(p *ProjectState) *ProjectState {
	if existing, ok := s.Projects[p.ID]; ok {
		return existing
	}
	s.Projects[p.ID] = p
	s.PendingProjects = append(s.PendingProjects, p.ID)
	return p
}

// CompleteGroup moves a group from pending to completed once both of
// its listings are done.
func (s *AgentState) CompleteGroup(id int64) {
	s.PendingGroups = remove(s.PendingGroups, id)
	if !contains(s.CompletedGroups, id) {
		s.CompletedGroups = append(s.CompletedGroups, id)
	}
}

// CompleteProject moves a project from pending to completed.
func (s *AgentState) CompleteProject(id int64) error {
	if _, ok := s.Projects[id]; !ok {
		return fmt.Errorf("complete project %d: not tracked", id)
	}
	if !contains(s.PendingProjects, id) {
		return fmt.Errorf("complete project %d: not pending", id)
	}
	s.PendingProjects = remove(s.PendingProjects, id)
	s.CompletedProjects = append(s.CompletedProjects, id)
	return nil
}

// RecordProjectError attaches a step failure to a project.
func (s *AgentState) RecordProjectError(id int64, e inventory.ProjectError) {
	p, ok := s.Projects[id]
	if !ok {
		return
	}
	p.Errors = append(p.Errors, e)
}

// ProjectBudgetLeft reports whether the project may spend more calls.
func (s *AgentState) ProjectBudgetLeft(p *ProjectState) bool {
	return p.APICallsUsed < s.MaxPerProjectCalls
}

// ErrorCount totals recorded per-project errors for run stats.
func (s *AgentState) ErrorCount() int {
	n := 0
	for _, p := range s.Projects {
		n += len(p.Errors)
	}
	return n
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
