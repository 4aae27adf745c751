package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// labelCreate creates an issue label unless the destination already
// has one under the same name.
type labelCreate struct {
	deps  Deps
	label dest.Label
}

func newLabelCreate(s action.Spec, d Deps) (Action, error) {
	name, err := requireString(s, "name")
	if err != nil {
		return nil, err
	}
	return &labelCreate{
		deps: d,
		label: dest.Label{
			Name:        name,
			Color:       s.StringParam("color"),
			Description: s.StringParam("description"),
		},
	}, nil
}

func (a *labelCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	_, err := a.deps.Dest.GetLabel(ctx, run.Owner, run.Repo, a.label.Name)
	switch {
	case err == nil:
		return &Effect{Outputs: map[string]any{"name": a.label.Name, "existed": true}}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	created, err := a.deps.Dest.CreateLabel(ctx, run.Owner, run.Repo, a.label)
	if err != nil {
		return nil, err
	}
	return &Effect{
		Outputs:      map[string]any{"name": created.Name},
		RollbackData: map[string]any{"name": created.Name},
	}, nil
}

func (a *labelCreate) Simulate(ctx context.Context, run *action.Context) (*Simulation, error) {
	_, err := a.deps.Dest.GetLabel(ctx, run.Owner, run.Repo, a.label.Name)
	switch {
	case err == nil:
		return &Simulation{
			Outcome: action.WouldSkip,
			Message: fmt.Sprintf("label %q already exists", a.label.Name),
		}, nil
	case errors.Is(err, domain.ErrNotFound):
		return &Simulation{
			Outcome: action.WouldCreate,
			Message: fmt.Sprintf("would create label %q", a.label.Name),
		}, nil
	default:
		return nil, err
	}
}

func (a *labelCreate) Reversible() bool { return true }

func (a *labelCreate) Rollback(ctx context.Context, run *action.Context, data map[string]any) error {
	name, _ := data["name"].(string)
	if name == "" {
		return nil
	}
	return a.deps.Dest.DeleteLabel(ctx, run.Owner, run.Repo, name)
}

// milestoneCreate creates a milestone and records the source-id
// mapping issues need to reference it.
type milestoneCreate struct {
	deps     Deps
	sourceID string
	params   dest.MilestoneParams
}

func newMilestoneCreate(s action.Spec, d Deps) (Action, error) {
	title, err := requireString(s, "title")
	if err != nil {
		return nil, err
	}
	return &milestoneCreate{
		deps:     d,
		sourceID: sourceKey(s, "source_id"),
		params: dest.MilestoneParams{
			Title:       title,
			State:       s.StringParam("state"),
			Description: s.StringParam("description"),
			DueOn:       s.StringParam("due_on"),
		},
	}, nil
}

func (a *milestoneCreate) mapID(run *action.Context, number int64) {
	if a.sourceID != "" {
		run.MapID(action.MappingMilestone, a.sourceID, number)
	}
}

func (a *milestoneCreate) existing(ctx context.Context, run *action.Context) (*dest.Milestone, error) {
	milestones, err := a.deps.Dest.ListMilestones(ctx, run.Owner, run.Repo)
	if err != nil {
		return nil, err
	}
	for i := range milestones {
		if milestones[i].Title == a.params.Title {
			return &milestones[i], nil
		}
	}
	return nil, nil
}

func (a *milestoneCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	if m, err := a.existing(ctx, run); err != nil {
		return nil, err
	} else if m != nil {
		a.mapID(run, m.Number)
		return &Effect{Outputs: map[string]any{"number": m.Number, "existed": true}}, nil
	}

	m, err := a.deps.Dest.CreateMilestone(ctx, run.Owner, run.Repo, a.params)
	if err != nil {
		return nil, err
	}
	a.mapID(run, m.Number)
	return &Effect{
		Outputs:      map[string]any{"number": m.Number, "title": m.Title},
		RollbackData: map[string]any{"number": m.Number},
	}, nil
}

func (a *milestoneCreate) Simulate(ctx context.Context, run *action.Context) (*Simulation, error) {
	m, err := a.existing(ctx, run)
	if err != nil {
		return nil, err
	}
	if m != nil {
		a.mapID(run, m.Number)
		return &Simulation{
			Outcome: action.WouldSkip,
			Message: fmt.Sprintf("milestone %q already exists as #%d", a.params.Title, m.Number),
		}, nil
	}
	a.mapID(run, 0)
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would create milestone %q", a.params.Title),
	}, nil
}

func (a *milestoneCreate) Reversible() bool { return true }

func (a *milestoneCreate) Rollback(ctx context.Context, run *action.Context, data map[string]any) error {
	number := intFromAny(data["number"])
	if number == 0 {
		return nil
	}
	return a.deps.Dest.DeleteMilestone(ctx, run.Owner, run.Repo, number)
}

// issueCreate creates a destination issue and records the mapping from
// the source issue id to the new number. Issues cannot be deleted
// through the destination API, so the action is irreversible.
type issueCreate struct {
	irreversible
	deps        Deps
	sourceID    string
	milestoneID string
	state       string
	params      dest.IssueParams
}

func newIssueCreate(s action.Spec, d Deps) (Action, error) {
	title, err := requireString(s, "title")
	if err != nil {
		return nil, err
	}
	return &issueCreate{
		deps:        d,
		sourceID:    sourceKey(s, "source_id"),
		milestoneID: sourceKey(s, "milestone_source_id"),
		state:       s.StringParam("state"),
		params: dest.IssueParams{
			Title:     title,
			Body:      s.StringParam("body"),
			Labels:    s.StringsParam("labels"),
			Assignees: s.StringsParam("assignees"),
		},
	}, nil
}

func (a *issueCreate) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	params := a.params
	outputs := map[string]any{}
	if a.milestoneID != "" {
		if number, ok := run.LookupID(action.MappingMilestone, a.milestoneID); ok {
			params.Milestone = number
		} else {
			outputs["milestone_unresolved"] = a.milestoneID
		}
	}

	issue, err := a.deps.Dest.CreateIssue(ctx, run.Owner, run.Repo, params)
	if err != nil {
		return nil, err
	}
	if a.sourceID != "" {
		run.MapID(action.MappingIssue, a.sourceID, issue.Number)
	}
	outputs["number"] = issue.Number
	outputs["html_url"] = issue.HTMLURL

	// A failed close after a successful create must not fail the
	// action: retrying would file the issue twice.
	if a.state == "closed" {
		if err := a.deps.Dest.UpdateIssueState(ctx, run.Owner, run.Repo, issue.Number, "closed"); err != nil {
			outputs["close_error"] = err.Error()
		} else {
			outputs["state"] = "closed"
		}
	}
	return &Effect{Outputs: outputs}, nil
}

func (a *issueCreate) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	if a.sourceID != "" {
		run.MapID(action.MappingIssue, a.sourceID, 0)
	}
	msg := fmt.Sprintf("would create issue %q", a.params.Title)
	if a.state == "closed" {
		msg += " and close it"
	}
	return &Simulation{Outcome: action.WouldCreate, Message: msg}, nil
}

// issueCommentAdd comments on an issue created earlier in the plan,
// resolving its destination number through the id mappings.
type issueCommentAdd struct {
	irreversible
	deps    Deps
	issueID string
	body    string
}

func newIssueCommentAdd(s action.Spec, d Deps) (Action, error) {
	issueID := sourceKey(s, "issue_id")
	if issueID == "" {
		return nil, fmt.Errorf("action %s: parameter %q is required", s.ID, "issue_id")
	}
	body, err := requireString(s, "body")
	if err != nil {
		return nil, err
	}
	return &issueCommentAdd{deps: d, issueID: issueID, body: body}, nil
}

func (a *issueCommentAdd) resolve(run *action.Context) (int64, error) {
	number, ok := run.LookupID(action.MappingIssue, a.issueID)
	if !ok {
		return 0, domain.NewStepError(domain.CategoryValidation, "issue_comment_add", 0,
			fmt.Sprintf("Could not resolve issue number for source issue %s", a.issueID))
	}
	return number, nil
}

func (a *issueCommentAdd) Execute(ctx context.Context, run *action.Context) (*Effect, error) {
	number, err := a.resolve(run)
	if err != nil {
		return nil, err
	}
	comment, err := a.deps.Dest.CreateIssueComment(ctx, run.Owner, run.Repo, number, a.body)
	if err != nil {
		return nil, err
	}
	return &Effect{Outputs: map[string]any{
		"comment_id":   comment.ID,
		"issue_number": number,
	}}, nil
}

func (a *issueCommentAdd) Simulate(_ context.Context, run *action.Context) (*Simulation, error) {
	number, err := a.resolve(run)
	if err != nil {
		return &Simulation{Outcome: action.WouldFail, Message: err.Error()}, nil
	}
	if number == 0 {
		return &Simulation{
			Outcome: action.WouldCreate,
			Message: "would comment on an issue created earlier in this plan",
		}, nil
	}
	return &Simulation{
		Outcome: action.WouldCreate,
		Message: fmt.Sprintf("would comment on issue #%d", number),
	}, nil
}

// intFromAny converts the number shapes JSON round-trips produce.
func intFromAny(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
