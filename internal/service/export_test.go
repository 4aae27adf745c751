package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/checkpoint"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

func exportProject() source.Project {
	return source.Project{
		ID:                42,
		PathWithNamespace: "group/app",
		DefaultBranch:     "main",
		Visibility:        "private",
		HTTPURLToRepo:     "https://gitlab.example.com/group/app.git",
		WikiEnabled:       true,
		PackagesEnabled:   true,
	}
}

func exportFixture() *fakeSource {
	src := newFakeSource()
	p := exportProject()
	src.addProject(p)

	src.branches[42] = []source.Branch{{Name: "main", Default: true}, {Name: "dev"}}
	src.tags[42] = []source.Tag{{Name: "v1.0.0"}}
	src.setFile(42, "main", ".gitlab-ci.yml", []byte("build:\n  script: [make]\n"))
	src.setFile(42, "main", ".gitattributes", []byte("*.iso filter=lfs\n"))

	src.labels[42] = []source.Label{{ID: 1, Name: "bug", Color: "#ff0000"}}
	src.milestones[42] = []source.Milestone{{ID: 5, Title: "v1"}}
	src.issues[42] = []source.Issue{{
		ID: 100, IID: 1, Title: "crash on start", State: "opened",
		Description: "see ![log](/uploads/abc/log.txt)",
	}}
	src.issueNotes[1] = []source.Note{
		{ID: 200, Body: "repro attached ![dump](/uploads/def/dump.bin)"},
		{ID: 201, Body: "changed milestone to v1", System: true},
	}

	src.mrs[42] = []source.MergeRequest{{
		ID: 300, IID: 2, Title: "fix crash", State: "opened",
		SourceBranch: "fix", TargetBranch: "main",
	}}
	src.mrDiscussions[2] = []source.Discussion{
		{ID: "d1", Notes: []source.Note{{ID: 400, Body: "lgtm"}}},
		{ID: "d2", Notes: []source.Note{{ID: 401, Body: "assigned reviewer", System: true}}},
	}
	src.mrChanges[2] = []source.FileDiff{{
		OldPath: "main.go", NewPath: "main.go",
		Diff: "@@ -1,2 +1,3 @@\n-old\n+new\n+more\n",
	}}

	src.wikiPages[42] = []source.WikiPage{{Slug: "home", Title: "Home", Format: "markdown", Content: "# Home\n"}}
	src.releases[42] = []source.Release{{TagName: "v1.0.0", Name: "First"}}
	src.packages[42] = []source.Package{{ID: 9, Name: "app", Version: "1.0.0", PackageType: "maven"}}
	src.packageFiles[9] = []source.PackageFile{{ID: 1, FileName: "app.jar", Size: 1024}}
	src.members[42] = []source.Member{{ID: 1, Username: "alice", AccessLevel: 40}}
	src.webhooks[42] = []source.Webhook{{ID: 1, URL: "https://hooks.example.com/x"}}
	return src
}

func TestExportProjectAllComponents(t *testing.T) {
	src := exportFixture()
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	summary, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("ExportProject: %v", err)
	}
	if summary.Failed() {
		t.Fatalf("unexpected failures: %+v", summary.Components)
	}
	if len(summary.Components) != len(checkpoint.Components) {
		t.Errorf("components recorded = %d, want %d", len(summary.Components), len(checkpoint.Components))
	}

	dir := filepath.Join(out, "42", "run1")
	for _, f := range []string{
		"project.json",
		"export.json",
		"repository/repository.json",
		"repository/branches.json",
		"cicd/gitlab-ci.yml",
		"issues/issues.json",
		"merge_requests/merge_requests.json",
		"wiki/pages.json",
		"wiki/home.md",
		"releases/releases.json",
		"packages/packages.json",
		"settings/settings.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing artifact %s: %v", f, err)
		}
	}

	var repo repositorySummary
	if err := readJSONFile(filepath.Join(dir, "repository/repository.json"), &repo); err != nil {
		t.Fatalf("read repository.json: %v", err)
	}
	if !repo.HasLFS {
		t.Error("lfs filter in .gitattributes not detected")
	}
	if repo.DefaultBranch != "main" || repo.Branches != 2 {
		t.Errorf("repository summary = %+v", repo)
	}
}

func TestExportIssuesFiltersAndAttachments(t *testing.T) {
	src := exportFixture()
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	if _, err := e.ExportProject(context.Background(), &p); err != nil {
		t.Fatalf("ExportProject: %v", err)
	}

	var issues []exportedIssue
	path := filepath.Join(out, "42", "run1", "issues", "issues.json")
	if err := readJSONFile(path, &issues); err != nil {
		t.Fatalf("read issues.json: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %d", len(issues))
	}
	if len(issues[0].Notes) != 1 || issues[0].Notes[0].ID != 200 {
		t.Errorf("system notes should be filtered: %+v", issues[0].Notes)
	}
	want := []string{"/uploads/abc/log.txt", "/uploads/def/dump.bin"}
	if len(issues[0].Attachments) != len(want) {
		t.Fatalf("attachments = %v, want %v", issues[0].Attachments, want)
	}
	for i, ref := range want {
		if issues[0].Attachments[i] != ref {
			t.Errorf("attachment[%d] = %q, want %q", i, issues[0].Attachments[i], ref)
		}
	}
}

func TestExportMergeRequestDiffsAndDiscussions(t *testing.T) {
	src := exportFixture()
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	if _, err := e.ExportProject(context.Background(), &p); err != nil {
		t.Fatalf("ExportProject: %v", err)
	}

	var mrs []exportedMR
	path := filepath.Join(out, "42", "run1", "merge_requests", "merge_requests.json")
	if err := readJSONFile(path, &mrs); err != nil {
		t.Fatalf("read merge_requests.json: %v", err)
	}
	if len(mrs) != 1 {
		t.Fatalf("mrs = %d", len(mrs))
	}
	mr := mrs[0]
	if len(mr.Discussions) != 1 || mr.Discussions[0].ID != "d1" {
		t.Errorf("system-only threads should be dropped: %+v", mr.Discussions)
	}
	if !mr.Diff.Available || mr.Diff.FilesChanged != 1 {
		t.Errorf("diff summary = %+v", mr.Diff)
	}
	if mr.Diff.Additions != 2 || mr.Diff.Deletions != 1 {
		t.Errorf("diff lines = +%d -%d, want +2 -1", mr.Diff.Additions, mr.Diff.Deletions)
	}
}

// A failed component is recorded and the rest still export.
func TestExportComponentFailureContinues(t *testing.T) {
	src := exportFixture()
	src.fail["ListLabels"] = domain.ErrNotFound
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	summary, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("ExportProject: %v", err)
	}

	if summary.Components[checkpoint.ComponentIssues].Status != "failed" {
		t.Errorf("issues component = %+v, want failed", summary.Components[checkpoint.ComponentIssues])
	}
	if summary.Components[checkpoint.ComponentMergeRequests].Status != "complete" {
		t.Errorf("merge requests should still run: %+v", summary.Components[checkpoint.ComponentMergeRequests])
	}
	if !summary.Failed() {
		t.Error("summary should report failure")
	}
}

// Resuming from a checkpoint skips completed components entirely.
func TestExportResumeSkipsCompleted(t *testing.T) {
	src := exportFixture()
	src.fail["ListLabels"] = domain.ErrNotFound
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	first, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	if !first.Failed() {
		t.Fatal("fixture should fail the issues component")
	}
	repoLists := src.callCount("ListBranches")

	// Second run: the labels listing works now; only the issues
	// component should re-run.
	delete(src.fail, "ListLabels")
	second, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if second.Failed() {
		t.Errorf("second run should succeed: %+v", second.Components)
	}
	if got := src.callCount("ListBranches"); got != repoLists {
		t.Errorf("repository component re-ran on resume: %d -> %d", repoLists, got)
	}
}

// Disabled surfaces are skipped, not failed.
func TestExportSkipsDisabledWiki(t *testing.T) {
	src := exportFixture()
	p := exportProject()
	p.WikiEnabled = false
	src.addProject(p)

	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})
	summary, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("ExportProject: %v", err)
	}
	if summary.Components[checkpoint.ComponentWiki].Status != "skipped" {
		t.Errorf("wiki = %+v, want skipped", summary.Components[checkpoint.ComponentWiki])
	}
	if src.callCount("ListWikiPages") != 0 {
		t.Error("wiki listing should not run when the surface is disabled")
	}
}

// Variable values never leave the source; the gap is called out.
func TestExportRecordsVariableGap(t *testing.T) {
	src := exportFixture()
	src.projectVars[42] = []source.Variable{{Key: "TOKEN", Masked: true}}
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	summary, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("ExportProject: %v", err)
	}
	found := false
	for _, gap := range summary.Gaps {
		if strings.Contains(gap, "CI variable values") {
			found = true
		}
	}
	if !found {
		t.Errorf("gaps = %v, want a CI variable gap", summary.Gaps)
	}
}

// A project with no CI variables has nothing to stage, so the gap
// report stays quiet about them.
func TestExportNoVariablesNoGap(t *testing.T) {
	src := exportFixture()
	src.projectVars[42] = nil
	out := t.TempDir()
	e := NewExporter(src, ExportOptions{OutputDir: out, RunID: "run1"})

	p := exportProject()
	summary, err := e.ExportProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("ExportProject: %v", err)
	}
	for _, gap := range summary.Gaps {
		if strings.Contains(gap, "CI variable values") {
			t.Errorf("gaps = %v, want no CI variable gap", summary.Gaps)
		}
	}
}
