package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// attachmentRefRe finds markdown links to forge-hosted uploads in
// issue and comment bodies. References are recorded, not downloaded.
var attachmentRefRe = regexp.MustCompile(`\]\((/uploads/[^)\s]+)\)`)

// exportedIssue is one issue with its surviving (non-system) notes.
type exportedIssue struct {
	source.Issue
	Notes       []source.Note `json:"notes"`
	Attachments []string      `json:"attachments,omitempty"`
}

func extractAttachmentRefs(bodies ...string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, body := range bodies {
		for _, m := range attachmentRefRe.FindAllStringSubmatch(body, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				refs = append(refs, m[1])
			}
		}
	}
	return refs
}

// filterSystemNotes drops the forge's activity records, keeping only
// human comments.
func filterSystemNotes(notes []source.Note) []source.Note {
	kept := make([]source.Note, 0, len(notes))
	for _, n := range notes {
		if !n.System {
			kept = append(kept, n)
		}
	}
	return kept
}

func (e *Exporter) exportIssues(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project

	labels, err := e.src.ListLabels(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, "labels.json"), labels); err != nil {
		return nil, err
	}

	milestones, err := e.src.ListMilestones(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	if err := writeJSONFile(filepath.Join(dir, "milestones.json"), milestones); err != nil {
		return nil, err
	}

	issues, err := e.src.ListIssues(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	exported := make([]exportedIssue, 0, len(issues))
	attachments := 0
	for _, issue := range issues {
		notes, err := e.src.ListIssueNotes(ctx, p.ID, issue.IID)
		if err != nil {
			return nil, fmt.Errorf("issue %d notes: %w", issue.IID, err)
		}
		kept := filterSystemNotes(notes)

		bodies := make([]string, 0, len(kept)+1)
		bodies = append(bodies, issue.Description)
		for _, n := range kept {
			bodies = append(bodies, n.Body)
		}
		refs := extractAttachmentRefs(bodies...)
		attachments += len(refs)

		exported = append(exported, exportedIssue{
			Issue:       issue,
			Notes:       kept,
			Attachments: refs,
		})
	}

	if err := writeJSONFile(filepath.Join(dir, "issues.json"), exported); err != nil {
		return nil, err
	}

	return map[string]any{
		"labels":      len(labels),
		"milestones":  len(milestones),
		"issues":      len(exported),
		"attachments": attachments,
	}, nil
}
