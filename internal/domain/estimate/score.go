package estimate

import (
	"fmt"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

// Bucket thresholds on the work score.
const (
	bucketMedium = 20
	bucketLarge  = 45
	bucketXL     = 70
)

const maxCIScore = 50

// CIScore grades a CI profile on a 0..50 scale from its features,
// runner hints and job count.
func CIScore(p *inventory.CIProfile) int {
	if p == nil {
		return 0
	}
	score := 0
	f := p.Features
	for _, w := range []struct {
		on     bool
		weight int
	}{
		{f.Include, 5},
		{f.Trigger, 5},
		{f.Matrix, 5},
		{f.Needs, 4},
		{f.Rules, 4},
		{f.Services, 4},
		{f.Parallel, 4},
		{f.Environments, 3},
		{f.Artifacts, 2},
		{f.Cache, 2},
		{f.Extends, 2},
		{f.ManualJobs, 2},
		{f.Variables, 1},
		{p.RunnerHints.PossibleSelfHosted, 6},
		{p.RunnerHints.DockerInDocker, 5},
		{p.RunnerHints.Privileged, 4},
		{p.RunnerHints.UsesTags, 3},
	} {
		if w.on {
			score += w.weight
		}
	}
	jobs := p.JobsCount
	if jobs > 12 {
		jobs = 12
	}
	score += jobs
	if score > maxCIScore {
		score = maxCIScore
	}
	return score
}

// WorkScore combines the CI score with repository, backlog and
// integration contributions into a 0..100 scale.
func WorkScore(p *inventory.Project) int {
	score := CIScore(p.Facts.CIProfile)
	if p.Facts.CIProfile == nil && p.Facts.HasCI.IsTrue() {
		// CI exists but was never profiled; assume a middling pipeline.
		score += 15
	}

	if rp := p.Facts.RepoProfile; rp != nil {
		if rp.Branches > 10 {
			score += 3
		}
		if rp.Branches > 50 {
			score += 3
		}
		if rp.Tags > 20 {
			score += 2
		}
		if rp.HasSubmodules {
			score += 5
		}
		if rp.HasLFS {
			score += 5
		}
	} else if p.Facts.HasLFS.IsTrue() {
		score += 5
	}

	totalMRs := p.Facts.MRCounts.Total()
	if totalMRs > 100 {
		score += 5
	}
	if totalMRs > 500 {
		score += 5
	}
	totalIssues := p.Facts.IssueCounts.Total()
	if totalIssues > 200 {
		score += 5
	}
	if totalIssues > 1000 {
		score += 5
	}

	if e := p.Facts.Enrichment; e != nil {
		if e.Integrations.ProtectedBranches > 1 {
			score += 3
		}
		if e.Integrations.Webhooks > 0 {
			score += 2
		}
		if e.Integrations.ProjectVariables > 10 {
			score += 3
		}
		if e.Integrations.ContainerRegistry {
			score += 4
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// BucketFor maps a work score to its coarse effort bucket.
func BucketFor(score int) string {
	switch {
	case score < bucketMedium:
		return "S"
	case score < bucketLarge:
		return "M"
	case score < bucketXL:
		return "L"
	default:
		return "XL"
	}
}

// Compute produces the rule-based estimate for a project. It is fully
// deterministic; the model-assisted path replaces it only when the
// model answer parses cleanly.
func Compute(p *inventory.Project) *inventory.Estimate {
	score := WorkScore(p)
	hoursLow := 1 + float64(score)*0.35
	hoursHigh := 2 + float64(score)*0.7

	est := &inventory.Estimate{
		Confidence: confidenceFor(p),
		Drivers:    []string{},
		Blockers:   []string{},
		Unknowns:   []string{},
		WorkScore:  score,
		Bucket:     BucketFor(score),
	}

	rp := p.Facts.RepoProfile
	if rp != nil && rp.HasSubmodules {
		hoursLow += 2
		hoursHigh += 4
		est.Drivers = append(est.Drivers, "Submodules require URL rewriting")
	}
	hasLFS := p.Facts.HasLFS.IsTrue() || (rp != nil && rp.HasLFS)
	if hasLFS {
		hoursLow += 2
		hoursHigh += 4
		est.Drivers = append(est.Drivers, "Git LFS objects must be migrated")
		est.Blockers = append(est.Blockers, "Uses Git LFS")
	}
	if ci := p.Facts.CIProfile; ci != nil {
		if s := CIScore(ci); s > 0 {
			est.Drivers = append(est.Drivers, fmt.Sprintf("CI pipeline conversion (complexity %d/50, %d jobs)", s, ci.JobsCount))
		}
		if ci.RunnerHints.PossibleSelfHosted {
			hoursLow += 3
			hoursHigh += 6
			est.Blockers = append(est.Blockers, "Self-hosted runner hints: destination runners must be provisioned")
		}
	}
	if e := p.Facts.Enrichment; e != nil {
		if e.Integrations.ProtectedBranches > 1 {
			hoursLow++
			hoursHigh += 2
			est.Drivers = append(est.Drivers, fmt.Sprintf("%d protected branches to map", e.Integrations.ProtectedBranches))
		}
		if e.RiskFlags.ExceededLimits {
			est.Unknowns = append(est.Unknowns, "Counts truncated by enumeration ceiling")
		}
	}
	if totalMRs := p.Facts.MRCounts.Total(); totalMRs > 500 {
		hoursLow += 2
		hoursHigh += 4
		est.Drivers = append(est.Drivers, fmt.Sprintf("Large merge request backlog (%d)", totalMRs))
	}
	if totalIssues := p.Facts.IssueCounts.Total(); totalIssues > 1000 {
		hoursLow += 2
		hoursHigh += 4
		est.Drivers = append(est.Drivers, fmt.Sprintf("Large issue backlog (%d)", totalIssues))
	}
	if !p.Facts.HasCI.Known {
		est.Unknowns = append(est.Unknowns, "CI presence could not be determined")
	}
	if !p.Facts.HasLFS.Known {
		est.Unknowns = append(est.Unknowns, "LFS usage could not be determined")
	}

	if p.Archived {
		hoursLow *= 0.5
		hoursHigh *= 0.5
		est.Drivers = append(est.Drivers, "Archived: one-shot migration without cutover coordination")
	}

	est.HoursLow = roundHalf(hoursLow)
	est.HoursHigh = roundHalf(hoursHigh)
	if est.HoursHigh < est.HoursLow {
		est.HoursHigh = est.HoursLow
	}
	est.ScopeFlags = scopeFlagsFor(p)
	est.Breakdown = splitBreakdown(est.HoursLow, est.HoursHigh)
	return est
}

func confidenceFor(p *inventory.Project) inventory.Confidence {
	if !p.Facts.HasCI.Known || !p.Facts.HasLFS.Known {
		return inventory.ConfidenceLow
	}
	if e := p.Facts.Enrichment; e != nil && !e.Permissions.CanReadRepo {
		return inventory.ConfidenceLow
	}
	if p.Facts.MRCounts.Unknown || p.Facts.IssueCounts.Unknown {
		return inventory.ConfidenceMedium
	}
	capped := p.Facts.MRCounts.Opened.Capped || p.Facts.MRCounts.Merged.Capped || p.Facts.MRCounts.Closed.Capped ||
		p.Facts.IssueCounts.Opened.Capped || p.Facts.IssueCounts.Closed.Capped
	if capped {
		return inventory.ConfidenceMedium
	}
	return inventory.ConfidenceHigh
}

func scopeFlagsFor(p *inventory.Project) inventory.ScopeFlags {
	supported := []string{"Repository with branches and tags", "Issues and merge requests", "Wiki and releases"}
	if p.Facts.HasCI.IsTrue() {
		supported = append(supported, "CI configuration converted to workflows")
	}
	notSupported := []string{"Container registry images", "Package binaries", "Pipeline run history"}
	if p.Facts.HasCI.IsTrue() {
		notSupported = append(notSupported, "CI variable values (metadata only)")
	}
	return inventory.ScopeFlags{
		Supported:    capList(supported, 5),
		NotSupported: capList(notSupported, 5),
	}
}

// splitBreakdown distributes the hours over work areas with the last
// area absorbing rounding so the sums match the top level exactly.
func splitBreakdown(low, high float64) *inventory.Breakdown {
	share := func(total, frac float64) float64 { return roundHalf(total * frac) }
	b := &inventory.Breakdown{
		Code:   inventory.HoursRange{HoursLow: share(low, 0.4), HoursHigh: share(high, 0.4)},
		MRs:    inventory.HoursRange{HoursLow: share(low, 0.25), HoursHigh: share(high, 0.25)},
		Issues: inventory.HoursRange{HoursLow: share(low, 0.2), HoursHigh: share(high, 0.2)},
	}
	b.CI = inventory.HoursRange{
		HoursLow:  roundHalf(low - b.Code.HoursLow - b.MRs.HoursLow - b.Issues.HoursLow),
		HoursHigh: roundHalf(high - b.Code.HoursHigh - b.MRs.HoursHigh - b.Issues.HoursHigh),
	}
	// A negative residual means rounding overshot; take the excess out
	// of the code share so the areas still sum to the top level.
	if b.CI.HoursLow < 0 {
		b.Code.HoursLow += b.CI.HoursLow
		b.CI.HoursLow = 0
	}
	if b.CI.HoursHigh < 0 {
		b.Code.HoursHigh += b.CI.HoursHigh
		b.CI.HoursHigh = 0
	}
	return b
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// roundHalf rounds to the nearest half hour.
func roundHalf(h float64) float64 {
	if h < 0 {
		return 0
	}
	return float64(int(h*2+0.5)) / 2
}
