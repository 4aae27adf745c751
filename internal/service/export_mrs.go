package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// DiffSummary totals the line changes of one merge request. Binary
// diffs are counted as changed files but contribute no line totals.
type DiffSummary struct {
	FilesChanged int  `json:"files_changed"`
	Additions    int  `json:"additions"`
	Deletions    int  `json:"deletions"`
	BinaryFiles  int  `json:"binary_files,omitempty"`
	Available    bool `json:"available"`
}

// exportedMR is one merge request with its discussions, approval
// status and diff summary.
type exportedMR struct {
	source.MergeRequest
	Discussions []source.Discussion    `json:"discussions"`
	Approvals   *source.ApprovalStatus `json:"approvals,omitempty"`
	Diff        DiffSummary            `json:"diff"`
	Attachments []string               `json:"attachments,omitempty"`
}

// summarizeDiffs counts added and removed lines by their prefix,
// skipping the +++/--- file headers that would otherwise inflate every
// file by one.
func summarizeDiffs(diffs []source.FileDiff) DiffSummary {
	sum := DiffSummary{FilesChanged: len(diffs), Available: true}
	for _, d := range diffs {
		if isBinaryDiff(d.Diff) {
			sum.BinaryFiles++
			continue
		}
		for _, line := range strings.Split(d.Diff, "\n") {
			switch {
			case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			case strings.HasPrefix(line, "+"):
				sum.Additions++
			case strings.HasPrefix(line, "-"):
				sum.Deletions++
			}
		}
	}
	return sum
}

func isBinaryDiff(diff string) bool {
	return strings.Contains(diff, "Binary files ") || !strings.HasPrefix(diff, "@@") && strings.Contains(diff, "GIT binary patch")
}

// filterSystemDiscussions drops threads that only carry system notes;
// surviving threads keep their diff positions.
func filterSystemDiscussions(discussions []source.Discussion) []source.Discussion {
	kept := make([]source.Discussion, 0, len(discussions))
	for _, d := range discussions {
		notes := filterSystemNotes(d.Notes)
		if len(notes) == 0 {
			continue
		}
		d.Notes = notes
		kept = append(kept, d)
	}
	return kept
}

func (e *Exporter) exportMergeRequests(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project

	mrs, err := e.src.ListMergeRequests(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list merge requests: %w", err)
	}

	exported := make([]exportedMR, 0, len(mrs))
	for _, mr := range mrs {
		out := exportedMR{MergeRequest: mr}

		discussions, err := e.src.ListMRDiscussions(ctx, p.ID, mr.IID)
		if err != nil {
			return nil, fmt.Errorf("mr %d discussions: %w", mr.IID, err)
		}
		out.Discussions = filterSystemDiscussions(discussions)

		if approvals, err := e.src.GetMRApprovals(ctx, p.ID, mr.IID); err == nil {
			out.Approvals = approvals
		}

		diffs, err := e.src.ListMRChanges(ctx, p.ID, mr.IID)
		if err != nil {
			e.log.Warn("mr diff unavailable", "project", p.PathWithNamespace, "mr", mr.IID, "error", err)
		} else {
			out.Diff = summarizeDiffs(diffs)
		}

		bodies := []string{mr.Description}
		for _, d := range out.Discussions {
			for _, n := range d.Notes {
				bodies = append(bodies, n.Body)
			}
		}
		out.Attachments = extractAttachmentRefs(bodies...)

		exported = append(exported, out)
	}

	if err := writeJSONFile(filepath.Join(dir, "merge_requests.json"), exported); err != nil {
		return nil, err
	}

	open := 0
	for _, mr := range exported {
		if mr.State == "opened" {
			open++
		}
	}
	return map[string]any{
		"merge_requests": len(exported),
		"open":           open,
	}, nil
}
