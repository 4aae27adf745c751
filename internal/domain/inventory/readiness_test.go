package inventory

import (
	"strings"
	"testing"
)

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestComputeReadinessTinyProject(t *testing.T) {
	p := &Project{
		ID:                1,
		PathWithNamespace: "team/tiny",
		DefaultBranch:     "main",
		Visibility:        VisibilityPrivate,
		Facts: Facts{
			HasCI:       False(),
			HasLFS:      False(),
			MRCounts:    MRCounts{},
			IssueCounts: IssueCounts{},
		},
	}
	r := ComputeReadiness(p)
	if r.Complexity != ComplexityLow {
		t.Errorf("complexity = %s, want low", r.Complexity)
	}
	if len(r.Blockers) != 0 {
		t.Errorf("unexpected blockers: %v", r.Blockers)
	}
	if len(r.Notes) != 0 {
		t.Errorf("unexpected notes: %v", r.Notes)
	}
}

func TestComputeReadinessArchivedOverride(t *testing.T) {
	p := &Project{
		ID:                2,
		PathWithNamespace: "team/legacy",
		DefaultBranch:     "master",
		Archived:          true,
		Visibility:        VisibilityPrivate,
		Facts: Facts{
			HasCI:  True(),
			HasLFS: True(),
			MRCounts: MRCounts{
				Merged: ExactCount(500),
			},
			IssueCounts: IssueCounts{
				Closed: ExactCount(1500),
			},
		},
	}
	r := ComputeReadiness(p)
	if r.Complexity != ComplexityLow {
		t.Errorf("archived project complexity = %s, want low", r.Complexity)
	}
	if !containsSubstring(r.Blockers, "Uses Git LFS") {
		t.Errorf("blockers missing LFS entry: %v", r.Blockers)
	}
	if !containsSubstring(r.Notes, "Archived") {
		t.Errorf("notes missing archive reminder: %v", r.Notes)
	}
}

func TestComputeReadinessScoring(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  Complexity
	}{
		{
			name:  "bare project",
			facts: Facts{HasCI: False(), HasLFS: False()},
			want:  ComplexityLow,
		},
		{
			name:  "ci only",
			facts: Facts{HasCI: True(), HasLFS: False()},
			want:  ComplexityMedium,
		},
		{
			name: "ci lfs and backlogs",
			facts: Facts{
				HasCI:       True(),
				HasLFS:      True(),
				MRCounts:    MRCounts{Merged: ExactCount(300)},
				IssueCounts: IssueCounts{Closed: ExactCount(600)},
			},
			want: ComplexityHigh,
		},
		{
			name: "unknown facts score nothing",
			facts: Facts{
				HasCI:       Unknown(),
				HasLFS:      Unknown(),
				MRCounts:    MRCounts{Unknown: true},
				IssueCounts: IssueCounts{Unknown: true},
			},
			want: ComplexityLow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Project{DefaultBranch: "main", Visibility: VisibilityPrivate, Facts: tt.facts}
			if got := ComputeReadiness(p).Complexity; got != tt.want {
				t.Errorf("complexity = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeReadinessBlockersAndNotes(t *testing.T) {
	p := &Project{
		ID:                3,
		PathWithNamespace: "team/internal-tool",
		DefaultBranch:     "develop",
		Visibility:        VisibilityInternal,
		Facts: Facts{
			HasCI:       Unknown(),
			HasLFS:      False(),
			MRCounts:    MRCounts{Opened: ExactCount(4)},
			IssueCounts: IssueCounts{Opened: ExactCount(150)},
		},
		Errors: []ProjectError{
			{Step: "detect_ci", Category: "permission_denied", Status: 403, Message: "403 Forbidden"},
		},
	}
	r := ComputeReadiness(p)
	if !containsSubstring(r.Blockers, "Internal visibility") {
		t.Errorf("blockers missing internal visibility: %v", r.Blockers)
	}
	if !containsSubstring(r.Blockers, "detect_ci") {
		t.Errorf("blockers missing 403 step: %v", r.Blockers)
	}
	if !containsSubstring(r.Notes, "develop") {
		t.Errorf("notes missing default branch warning: %v", r.Notes)
	}
	if !containsSubstring(r.Notes, "4 open merge requests") {
		t.Errorf("notes missing open MR reminder: %v", r.Notes)
	}
	if !containsSubstring(r.Notes, "issue backlog") {
		t.Errorf("notes missing issue backlog reminder: %v", r.Notes)
	}
}
