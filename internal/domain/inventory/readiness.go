package inventory

import "fmt"

// Complexity score thresholds. A project at or above scoreMedium grades
// medium, at or above scoreHigh grades high; archived projects always
// grade low.
const (
	scoreMedium = 2
	scoreHigh   = 5
)

const (
	largeMRBacklog    = 200
	largeIssueBacklog = 500
	openIssueReminder = 100
)

// ComputeReadiness derives the migration-readiness verdict from a
// project's facts and recorded errors. The rules are deterministic so
// repeated runs over an unchanged source agree.
func ComputeReadiness(p *Project) Readiness {
	r := Readiness{
		Complexity: ComplexityLow,
		Blockers:   []string{},
		Notes:      []string{},
	}

	if !p.Archived {
		score := 0
		if p.Facts.HasCI.IsTrue() {
			score += 2
		}
		if p.Facts.HasLFS.IsTrue() {
			score++
		}
		totalMRs := p.Facts.MRCounts.Total()
		if totalMRs > 20 {
			score++
		}
		if totalMRs > largeMRBacklog {
			score++
		}
		totalIssues := p.Facts.IssueCounts.Total()
		if totalIssues > 50 {
			score++
		}
		if totalIssues > largeIssueBacklog {
			score++
		}
		switch {
		case score >= scoreHigh:
			r.Complexity = ComplexityHigh
		case score >= scoreMedium:
			r.Complexity = ComplexityMedium
		}
	}

	if p.Facts.HasCI.IsTrue() {
		r.Blockers = append(r.Blockers, "Uses GitLab CI (pipeline conversion required)")
	}
	if p.Facts.HasLFS.IsTrue() {
		r.Blockers = append(r.Blockers, "Uses Git LFS")
	}
	if p.Visibility == VisibilityInternal {
		r.Blockers = append(r.Blockers, "Internal visibility has no destination equivalent (will be migrated as private)")
	}
	for _, e := range p.Errors {
		if e.Status == 403 {
			r.Blockers = append(r.Blockers, fmt.Sprintf("Access denied during %s (grant read access and rerun)", e.Step))
		}
	}

	switch p.DefaultBranch {
	case "", "main":
	case "master":
		r.Notes = append(r.Notes, "Default branch is 'master' (consider renaming to 'main' during migration)")
	default:
		r.Notes = append(r.Notes, fmt.Sprintf("Default branch is %q (verify branch settings after migration)", p.DefaultBranch))
	}
	if !p.Facts.MRCounts.Unknown {
		if open := p.Facts.MRCounts.Opened.Approx(); open > 0 {
			r.Notes = append(r.Notes, fmt.Sprintf("%d open merge requests (merge or close before cutover)", open))
		}
	}
	if !p.Facts.IssueCounts.Unknown {
		if open := p.Facts.IssueCounts.Opened.Approx(); open > openIssueReminder {
			r.Notes = append(r.Notes, fmt.Sprintf("Large open issue backlog (%d issues)", open))
		}
	}
	if p.Archived {
		r.Notes = append(r.Notes, "Archived project (migrate read-only or consider skipping)")
	}

	return r
}
