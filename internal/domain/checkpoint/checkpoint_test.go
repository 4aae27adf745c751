package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMarkCompleteMonotonic(t *testing.T) {
	c := New(42, "run-1")
	c.MarkComplete(ComponentRepository)
	c.MarkComplete(ComponentIssues)
	c.MarkComplete(ComponentRepository)

	want := []string{ComponentRepository, ComponentIssues}
	if len(c.CompletedComponents) != len(want) {
		t.Fatalf("completed = %v", c.CompletedComponents)
	}
	for i, name := range want {
		if c.CompletedComponents[i] != name {
			t.Errorf("completed[%d] = %s, want %s", i, c.CompletedComponents[i], name)
		}
	}
}

func TestMarkCompleteDropsPartialSlot(t *testing.T) {
	c := New(42, "run-1")
	if err := c.SetPartial(ComponentIssues, map[string]int{"page": 3}); err != nil {
		t.Fatal(err)
	}
	c.MarkComplete(ComponentIssues)
	if _, ok := c.PartialState[ComponentIssues]; ok {
		t.Error("partial slot survived completion")
	}
}

func TestPartialRoundTrip(t *testing.T) {
	c := New(42, "run-1")
	type cursor struct {
		Page int `json:"page"`
	}
	if err := c.SetPartial(ComponentMergeRequests, cursor{Page: 7}); err != nil {
		t.Fatal(err)
	}

	var got cursor
	ok, err := c.Partial(ComponentMergeRequests, &got)
	if err != nil || !ok {
		t.Fatalf("Partial: %v, %v", ok, err)
	}
	if got.Page != 7 {
		t.Errorf("page = %d, want 7", got.Page)
	}

	ok, err = c.Partial(ComponentWiki, &got)
	if err != nil || ok {
		t.Errorf("absent slot = %v, %v", ok, err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	store.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	c, err := store.Load(42, "run-1")
	if err != nil {
		t.Fatalf("Load fresh: %v", err)
	}
	if len(c.CompletedComponents) != 0 {
		t.Fatalf("fresh checkpoint not empty: %v", c.CompletedComponents)
	}

	c.MarkComplete(ComponentRepository)
	if err := store.Save(c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.LastCheckpointAt.IsZero() {
		t.Error("save did not stamp the checkpoint")
	}

	got, err := store.Load(42, "run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Completed(ComponentRepository) || got.Completed(ComponentWiki) {
		t.Errorf("completed = %v", got.CompletedComponents)
	}
	if got.ProjectID != 42 || got.RunID != "run-1" {
		t.Errorf("identity = %d/%s", got.ProjectID, got.RunID)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	c := New(42, "run-1")
	c.MarkComplete(ComponentSettings)
	if err := store.Save(c); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path(42, "run-1")))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != fileName {
			t.Errorf("stray file %s", e.Name())
		}
	}
}

func TestStoreDeleteForcesFreshRun(t *testing.T) {
	store := NewStore(t.TempDir())
	c := New(42, "run-1")
	c.MarkComplete(ComponentReleases)
	if err := store.Save(c); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(42, "run-1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(42, "run-1"); err != nil {
		t.Errorf("second delete: %v", err)
	}

	got, err := store.Load(42, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.CompletedComponents) != 0 {
		t.Errorf("delete did not reset the run: %v", got.CompletedComponents)
	}
}

func TestComponentNames(t *testing.T) {
	if len(Components) != 8 {
		t.Fatalf("component count = %d, want 8", len(Components))
	}
	for _, name := range Components {
		if strings.ContainsAny(name, " -") {
			t.Errorf("component %q not snake_case", name)
		}
	}
}

// The completed_components tokens are a wire format shared with
// external checkpoint consumers; they must not drift.
func TestComponentTokens(t *testing.T) {
	want := []string{
		"repository",
		"ci_cd",
		"issues",
		"merge_requests",
		"wiki",
		"releases",
		"packages",
		"settings",
	}
	if len(Components) != len(want) {
		t.Fatalf("component count = %d, want %d", len(Components), len(want))
	}
	for i, token := range want {
		if Components[i] != token {
			t.Errorf("Components[%d] = %q, want %q", i, Components[i], token)
		}
	}
}

func TestComponentDirs(t *testing.T) {
	for _, name := range Components {
		want := name
		if name == ComponentCICD {
			want = "cicd"
		}
		if got := Dir(name); got != want {
			t.Errorf("Dir(%q) = %q, want %q", name, got, want)
		}
	}
}
