package estimate

import (
	"testing"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

func tinyProject() *inventory.Project {
	return &inventory.Project{
		ID:                1,
		PathWithNamespace: "team/tiny",
		DefaultBranch:     "main",
		Visibility:        inventory.VisibilityPrivate,
		Facts: inventory.Facts{
			HasCI:       inventory.False(),
			HasLFS:      inventory.False(),
			MRCounts:    inventory.MRCounts{},
			IssueCounts: inventory.IssueCounts{},
			RepoProfile: &inventory.RepoProfile{Branches: 1},
		},
	}
}

func TestComputeTinyProject(t *testing.T) {
	est := Compute(tinyProject())
	if est.HoursLow != 1 {
		t.Errorf("hours_low = %v, want 1", est.HoursLow)
	}
	if est.HoursHigh != 2 {
		t.Errorf("hours_high = %v, want 2", est.HoursHigh)
	}
	if est.Confidence != inventory.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", est.Confidence)
	}
	if est.Bucket != "S" {
		t.Errorf("bucket = %s, want S", est.Bucket)
	}
	if est.WorkScore != 0 {
		t.Errorf("work score = %v, want 0", est.WorkScore)
	}
}

func TestComputeCIHeavyProject(t *testing.T) {
	p := tinyProject()
	p.Facts.HasCI = inventory.True()
	p.Facts.CIProfile = ParseCIProfile(ciHeavy)

	est := Compute(p)
	if est.HoursHigh < 20 {
		t.Errorf("hours_high = %v, want >= 20 for a CI-heavy project", est.HoursHigh)
	}
	if est.HoursLow > est.HoursHigh {
		t.Errorf("hours_low %v exceeds hours_high %v", est.HoursLow, est.HoursHigh)
	}
	found := false
	for _, b := range est.Blockers {
		if b == "Self-hosted runner hints: destination runners must be provisioned" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing self-hosted blocker: %v", est.Blockers)
	}
}

func TestComputeArchivedReduction(t *testing.T) {
	p := tinyProject()
	p.Facts.HasCI = inventory.True()
	p.Facts.CIProfile = ParseCIProfile(ciHeavy)

	active := Compute(p)
	p.Archived = true
	archived := Compute(p)

	if archived.HoursHigh >= active.HoursHigh {
		t.Errorf("archived hours %v not reduced from %v", archived.HoursHigh, active.HoursHigh)
	}
}

func TestComputeBreakdownSumsMatch(t *testing.T) {
	cases := []*inventory.Project{
		tinyProject(),
		func() *inventory.Project {
			p := tinyProject()
			p.Facts.HasCI = inventory.True()
			p.Facts.CIProfile = ParseCIProfile(ciHeavy)
			p.Facts.RepoProfile = &inventory.RepoProfile{Branches: 60, Tags: 30, HasSubmodules: true, HasLFS: true}
			p.Facts.MRCounts = inventory.MRCounts{Merged: inventory.ExactCount(900)}
			p.Facts.IssueCounts = inventory.IssueCounts{Closed: inventory.ExactCount(2000)}
			return p
		}(),
	}
	for _, p := range cases {
		est := Compute(p)
		b := est.Breakdown
		if b == nil {
			t.Fatal("breakdown missing")
		}
		sumLow := b.Code.HoursLow + b.MRs.HoursLow + b.Issues.HoursLow + b.CI.HoursLow
		sumHigh := b.Code.HoursHigh + b.MRs.HoursHigh + b.Issues.HoursHigh + b.CI.HoursHigh
		if !almostEqual(sumLow, est.HoursLow) {
			t.Errorf("%s: breakdown low sum %v != %v", p.PathWithNamespace, sumLow, est.HoursLow)
		}
		if !almostEqual(sumHigh, est.HoursHigh) {
			t.Errorf("%s: breakdown high sum %v != %v", p.PathWithNamespace, sumHigh, est.HoursHigh)
		}
	}
}

func TestConfidenceDegradesWithUnknowns(t *testing.T) {
	p := tinyProject()
	p.Facts.MRCounts = inventory.MRCounts{Unknown: true}
	if got := Compute(p).Confidence; got != inventory.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium with unknown counts", got)
	}

	p = tinyProject()
	p.Facts.HasCI = inventory.Unknown()
	if got := Compute(p).Confidence; got != inventory.ConfidenceLow {
		t.Errorf("confidence = %s, want low with unknown CI", got)
	}

	p = tinyProject()
	p.Facts.IssueCounts = inventory.IssueCounts{Opened: inventory.CappedCount(1000)}
	if got := Compute(p).Confidence; got != inventory.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium with capped counts", got)
	}
}

func TestBucketThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "S"}, {19, "S"}, {20, "M"}, {44, "M"}, {45, "L"}, {69, "L"}, {70, "XL"}, {100, "XL"},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.score); got != tt.want {
			t.Errorf("BucketFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScopeFlagsCapped(t *testing.T) {
	p := tinyProject()
	p.Facts.HasCI = inventory.True()
	est := Compute(p)
	if len(est.ScopeFlags.Supported) > 5 || len(est.ScopeFlags.NotSupported) > 5 {
		t.Errorf("scope flags exceed cap: %d/%d", len(est.ScopeFlags.Supported), len(est.ScopeFlags.NotSupported))
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
