package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Strob0t/ForgeShift/internal/actions"
	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// stubDest implements the slice of dest.Provider the apply test plans
// touch. The embedded interface panics on anything else, which is
// exactly what a test plan drifting out of sync should do.
type stubDest struct {
	dest.Provider

	mu         sync.Mutex
	labels     map[string]dest.Label
	milestones []dest.Milestone
	issues     []dest.IssueParams
	comments   map[int64][]string
	envs       []string
	deleted    []string

	nextIssue     int64
	nextMilestone int64
	failures      map[string]error
}

func newStubDest() *stubDest {
	return &stubDest{
		labels:        map[string]dest.Label{},
		comments:      map[int64][]string{},
		nextIssue:     100,
		nextMilestone: 7,
		failures:      map[string]error{},
	}
}

func (s *stubDest) check(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[method]
}

func (s *stubDest) Name() string { return "stub" }

func (s *stubDest) GetLabel(_ context.Context, _, _, name string) (*dest.Label, error) {
	if err := s.check("GetLabel"); err != nil {
		return nil, err
	}
	if l, ok := s.labels[name]; ok {
		return &l, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubDest) CreateLabel(_ context.Context, _, _ string, l dest.Label) (*dest.Label, error) {
	if err := s.check("CreateLabel"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[l.Name] = l
	return &l, nil
}

func (s *stubDest) DeleteLabel(_ context.Context, _, _, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.labels, name)
	s.deleted = append(s.deleted, "label:"+name)
	return nil
}

func (s *stubDest) ListMilestones(_ context.Context, _, _ string) ([]dest.Milestone, error) {
	if err := s.check("ListMilestones"); err != nil {
		return nil, err
	}
	return s.milestones, nil
}

func (s *stubDest) CreateMilestone(_ context.Context, _, _ string, p dest.MilestoneParams) (*dest.Milestone, error) {
	if err := s.check("CreateMilestone"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := dest.Milestone{Number: s.nextMilestone, Title: p.Title}
	s.nextMilestone++
	s.milestones = append(s.milestones, m)
	return &m, nil
}

func (s *stubDest) DeleteMilestone(_ context.Context, _, _ string, number int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, "milestone")
	return nil
}

func (s *stubDest) CreateIssue(_ context.Context, _, _ string, p dest.IssueParams) (*dest.Issue, error) {
	if err := s.check("CreateIssue"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = append(s.issues, p)
	n := s.nextIssue
	s.nextIssue++
	return &dest.Issue{Number: n}, nil
}

func (s *stubDest) CreateIssueComment(_ context.Context, _, _ string, number int64, body string) (*dest.Comment, error) {
	if err := s.check("CreateIssueComment"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[number] = append(s.comments[number], body)
	return &dest.Comment{ID: 1}, nil
}

func (s *stubDest) PutEnvironment(_ context.Context, _, _, name string) error {
	if err := s.check("PutEnvironment"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, name)
	return nil
}

func applyTestPlan() action.Plan {
	return action.Plan{
		{ID: "a001_label", Type: "label_create", IdempotencyKey: "o/r:label:bug",
			Parameters: map[string]any{"name": "bug", "color": "ff0000"}},
		{ID: "a002_milestone", Type: "milestone_create", IdempotencyKey: "o/r:milestone:v1",
			Parameters: map[string]any{"title": "v1", "source_id": "5"}},
		{ID: "a003_issue", Type: "issue_create", IdempotencyKey: "o/r:issue:100",
			Parameters: map[string]any{"title": "crash on start", "source_id": "100",
				"milestone_source_id": "5", "body": "boom"}},
		{ID: "a004_comment", Type: "issue_comment_add", IdempotencyKey: "o/r:issue_comment:200",
			Parameters: map[string]any{"issue_id": "100", "body": "repro attached"}},
		{ID: "a005_env", Type: "environment_create", IdempotencyKey: "o/r:environment:prod",
			Parameters: map[string]any{"name": "prod"}},
	}
}

func TestApplyExecutesPlanInOrder(t *testing.T) {
	d := newStubDest()
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{Owner: "o", Repo: "r"})

	report, err := a.Apply(context.Background(), applyTestPlan())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Succeeded != 5 || report.Failed != 0 {
		t.Fatalf("report = %d ok / %d failed", report.Succeeded, report.Failed)
	}

	if _, ok := d.labels["bug"]; !ok {
		t.Error("label not created")
	}
	if len(d.issues) != 1 {
		t.Fatalf("issues created = %d", len(d.issues))
	}
	// The milestone created two actions earlier must resolve onto the
	// issue through the id mapping.
	if d.issues[0].Milestone != 7 {
		t.Errorf("issue milestone = %d, want 7", d.issues[0].Milestone)
	}
	if got := d.comments[100]; len(got) != 1 || got[0] != "repro attached" {
		t.Errorf("comments on #100 = %v", got)
	}
	if report.IDMappings[action.MappingIssue]["100"] != 100 {
		t.Errorf("issue mapping = %v", report.IDMappings)
	}
}

func TestApplyDryRunTouchesNothing(t *testing.T) {
	d := newStubDest()
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{Owner: "o", Repo: "r", DryRun: true})

	report, err := a.Apply(context.Background(), applyTestPlan())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Succeeded != 5 {
		t.Fatalf("simulated plan should fully succeed: %+v", report)
	}
	for _, res := range report.Results {
		if !res.Simulated {
			t.Errorf("action %s was not simulated", res.ActionID)
		}
	}
	if len(d.labels) != 0 || len(d.issues) != 0 || len(d.envs) != 0 {
		t.Error("dry run wrote to the destination")
	}
}

func TestApplyAbortsOnFailure(t *testing.T) {
	d := newStubDest()
	d.failures["CreateIssue"] = domain.NewStepError(domain.CategoryValidation, "issue_create", 422, "bad issue")
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{Owner: "o", Repo: "r"})

	report, err := a.Apply(context.Background(), applyTestPlan())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !report.Aborted {
		t.Error("report should be marked aborted")
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Errorf("report = %d ok / %d failed, want 2/1", report.Succeeded, report.Failed)
	}
	if len(d.envs) != 0 {
		t.Error("actions after the failure must not run")
	}
}

func TestApplyContinueOnError(t *testing.T) {
	d := newStubDest()
	d.failures["CreateIssue"] = domain.NewStepError(domain.CategoryValidation, "issue_create", 422, "bad issue")
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{Owner: "o", Repo: "r", ContinueOnError: true})

	report, err := a.Apply(context.Background(), applyTestPlan())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Aborted {
		t.Error("continue-on-error must not abort")
	}
	// The comment depends on the failed issue and fails too; the
	// environment at the end still runs.
	if report.Failed != 2 {
		t.Errorf("failed = %d, want 2", report.Failed)
	}
	if len(d.envs) != 1 {
		t.Error("later actions should still run")
	}
}

func TestApplyRollbackReversesHistory(t *testing.T) {
	d := newStubDest()
	d.failures["CreateIssue"] = domain.NewStepError(domain.CategoryValidation, "issue_create", 422, "bad issue")
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{
		Owner: "o", Repo: "r", RollbackOnFailure: true,
	})

	report, err := a.Apply(context.Background(), applyTestPlan())
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(report.Rollbacks) != 2 {
		t.Fatalf("rollbacks = %+v, want label and milestone", report.Rollbacks)
	}
	// Reverse order: milestone first, then label.
	if report.Rollbacks[0].ActionType != "milestone_create" || !report.Rollbacks[0].RolledBack {
		t.Errorf("rollback[0] = %+v", report.Rollbacks[0])
	}
	if report.Rollbacks[1].ActionType != "label_create" || !report.Rollbacks[1].RolledBack {
		t.Errorf("rollback[1] = %+v", report.Rollbacks[1])
	}
	if len(d.labels) != 0 {
		t.Error("created label should be deleted by rollback")
	}
}

func TestApplyIdempotencyReplay(t *testing.T) {
	d := newStubDest()
	plan := applyTestPlan()
	// The same action appears twice, as a resumed run would replay it.
	plan = append(plan, plan[0])
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{Owner: "o", Repo: "r"})

	report, err := a.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Succeeded != 6 {
		t.Errorf("succeeded = %d", report.Succeeded)
	}
	// GetLabel ran once for the real execution; the replay must not
	// touch the destination again.
	if len(d.labels) != 1 {
		t.Errorf("labels = %v", d.labels)
	}
}

func TestApplyRejectsUnknownActionType(t *testing.T) {
	d := newStubDest()
	a := NewApplier(actions.Deps{Dest: d}, ApplyOptions{Owner: "o", Repo: "r"})

	_, err := a.Apply(context.Background(), action.Plan{
		{ID: "a001", Type: "teleport_repo", Parameters: map[string]any{}},
	})
	if err == nil {
		t.Fatal("expected a validation error")
	}
}
