package action

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPlanRoundTrip(t *testing.T) {
	plan := Plan{
		{ID: "a-1", Type: "repo_create", Parameters: map[string]any{"name": "svc", "private": true}},
		{ID: "a-2", Type: "issue_create", Parameters: map[string]any{"title": "Bug"}, IdempotencyKey: "issue-17"},
	}
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := plan.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadPlan(path)
	if err != nil {
		t.Fatalf("ReadPlan: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a-1" || got[1].IdempotencyKey != "issue-17" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got[0].BoolParam("private") {
		t.Errorf("private parameter lost")
	}
}

func TestPlanIsAJSONList(t *testing.T) {
	plan := Plan{{ID: "a-1", Type: "repo_create"}}
	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != '[' {
		t.Errorf("plan must serialize as a list, got %s", data)
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want error
	}{
		{"empty", Plan{}, ErrEmptyPlan},
		{"missing id", Plan{{Type: "repo_create"}}, ErrActionIDRequired},
		{"missing type", Plan{{ID: "a-1"}}, ErrActionTypeRequired},
		{"duplicate id", Plan{{ID: "a-1", Type: "x"}, {ID: "a-1", Type: "y"}}, ErrDuplicateActionID},
		{"ok", Plan{{ID: "a-1", Type: "x"}, {ID: "a-2", Type: "y"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSpecParamHelpers(t *testing.T) {
	// Decode through JSON so the parameter types match what ReadPlan
	// produces.
	raw := `{"id":"a","type":"t","parameters":{
		"title":"hello","count":42,"flag":true,
		"labels":["bug","p1"],"meta":{"k":"v"}}}`
	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatal(err)
	}

	if got := s.StringParam("title"); got != "hello" {
		t.Errorf("StringParam = %q", got)
	}
	if got := s.IntParam("count"); got != 42 {
		t.Errorf("IntParam = %d", got)
	}
	if !s.BoolParam("flag") {
		t.Errorf("BoolParam = false")
	}
	if got := s.StringsParam("labels"); len(got) != 2 || got[0] != "bug" {
		t.Errorf("StringsParam = %v", got)
	}
	if got := s.MapParam("meta"); got["k"] != "v" {
		t.Errorf("MapParam = %v", got)
	}
	if got := s.StringParam("absent"); got != "" {
		t.Errorf("absent StringParam = %q", got)
	}
	if _, ok := s.Param("absent"); ok {
		t.Errorf("absent Param reported present")
	}
}

func TestReadPlanErrors(t *testing.T) {
	if _, err := ReadPlan(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPlan(path); err == nil {
		t.Error("expected error for malformed plan")
	}
}
