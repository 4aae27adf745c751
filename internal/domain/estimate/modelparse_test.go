package estimate

import (
	"strings"
	"testing"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

func TestParseModelEstimateFencedBlock(t *testing.T) {
	raw := "Here is the estimate you asked for:\n" +
		"```json\n" +
		`{"hours_low": 4, "hours_high": 9, "risk": "medium", "critical_notes": ["Pin runner image versions"]}` +
		"\n```\nLet me know if anything is unclear."

	est, err := ParseModelEstimate(raw)
	if err != nil {
		t.Fatalf("ParseModelEstimate: %v", err)
	}
	if est.HoursLow != 4 || est.HoursHigh != 9 {
		t.Errorf("hours = %v/%v, want 4/9", est.HoursLow, est.HoursHigh)
	}
	if est.Risk != "medium" {
		t.Errorf("risk = %q, want medium", est.Risk)
	}
	if len(est.CriticalNotes) != 1 || est.CriticalNotes[0] != "Pin runner image versions" {
		t.Errorf("critical notes = %v", est.CriticalNotes)
	}
}

func TestParseModelEstimateBareObjectInProse(t *testing.T) {
	raw := `Based on the facts, {"hours_low": 2, "hours_high": 5, "risk": "low"} should cover it.`
	est, err := ParseModelEstimate(raw)
	if err != nil {
		t.Fatalf("ParseModelEstimate: %v", err)
	}
	if est.HoursLow != 2 || est.HoursHigh != 5 {
		t.Errorf("hours = %v/%v, want 2/5", est.HoursLow, est.HoursHigh)
	}
}

func TestParseModelEstimateBracesInsideStrings(t *testing.T) {
	raw := `{"hours_low": 1, "hours_high": 3, "risk": "low", "critical_notes": ["uses {{nested}} templating"]}`
	est, err := ParseModelEstimate(raw)
	if err != nil {
		t.Fatalf("ParseModelEstimate: %v", err)
	}
	if est.CriticalNotes[0] != "uses {{nested}} templating" {
		t.Errorf("notes = %v", est.CriticalNotes)
	}
}

func TestParseModelEstimateRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "I cannot provide an estimate for this project."},
		{"negative hours", `{"hours_low": -2, "hours_high": 5}`},
		{"all zero", `{"hours_low": 0, "hours_high": 0}`},
		{"not an object", "[1, 2, 3]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseModelEstimate(tt.raw); err == nil {
				t.Errorf("expected error for %q", tt.raw)
			}
		})
	}
}

func TestApplyOverlaysHoursAndConfidence(t *testing.T) {
	base := Compute(tinyProject())
	m := &ModelEstimate{HoursLow: 12, HoursHigh: 6, Risk: "high"}

	est := m.Apply(base)
	if est.HoursLow != 6 || est.HoursHigh != 12 {
		t.Errorf("hours = %v/%v, want swapped to 6/12", est.HoursLow, est.HoursHigh)
	}
	if est.Confidence != inventory.ConfidenceLow {
		t.Errorf("confidence = %s, want low for high risk", est.Confidence)
	}
	if base.HoursLow != 1 {
		t.Errorf("base mutated: hours_low = %v", base.HoursLow)
	}
}

func TestApplyScalesBreakdownToSums(t *testing.T) {
	base := Compute(tinyProject())
	m := &ModelEstimate{HoursLow: 10, HoursHigh: 20, Risk: "medium"}
	m.Breakdown.Code = inventory.HoursRange{HoursLow: 2, HoursHigh: 4}
	m.Breakdown.MRs = inventory.HoursRange{HoursLow: 1, HoursHigh: 2}
	m.Breakdown.Issues = inventory.HoursRange{HoursLow: 1, HoursHigh: 2}
	m.Breakdown.CI = inventory.HoursRange{HoursLow: 1, HoursHigh: 2}

	est := m.Apply(base)
	b := est.Breakdown
	sumLow := b.Code.HoursLow + b.MRs.HoursLow + b.Issues.HoursLow + b.CI.HoursLow
	sumHigh := b.Code.HoursHigh + b.MRs.HoursHigh + b.Issues.HoursHigh + b.CI.HoursHigh
	if !almostEqual(sumLow, est.HoursLow) {
		t.Errorf("breakdown low sum %v != %v", sumLow, est.HoursLow)
	}
	if !almostEqual(sumHigh, est.HoursHigh) {
		t.Errorf("breakdown high sum %v != %v", sumHigh, est.HoursHigh)
	}
}

func TestApplySynthesizesBreakdownWhenMissing(t *testing.T) {
	base := Compute(tinyProject())
	m := &ModelEstimate{HoursLow: 8, HoursHigh: 16, Risk: "low"}

	est := m.Apply(base)
	if est.Breakdown == nil {
		t.Fatal("breakdown missing")
	}
	sumHigh := est.Breakdown.Code.HoursHigh + est.Breakdown.MRs.HoursHigh +
		est.Breakdown.Issues.HoursHigh + est.Breakdown.CI.HoursHigh
	if !almostEqual(sumHigh, 16) {
		t.Errorf("synthesized breakdown high sum %v != 16", sumHigh)
	}
}

func TestApplyCapsScopeFlags(t *testing.T) {
	base := Compute(tinyProject())
	m := &ModelEstimate{HoursLow: 1, HoursHigh: 2}
	for i := 0; i < 8; i++ {
		m.Supported = append(m.Supported, strings.Repeat("x", i+1))
	}
	est := m.Apply(base)
	if len(est.ScopeFlags.Supported) != 5 {
		t.Errorf("supported len = %d, want 5", len(est.ScopeFlags.Supported))
	}
}
