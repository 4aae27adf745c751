package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/domain/checkpoint"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// planExportTree writes a minimal export artifact tree the way the
// exporter lays it out.
func planExportTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	project := source.Project{
		ID:                42,
		PathWithNamespace: "group/app",
		Description:       "the app",
		DefaultBranch:     "main",
		Visibility:        "private",
		HTTPURLToRepo:     "https://gitlab.example.com/group/app.git",
		WebURL:            "https://gitlab.example.com/group/app",
		WikiEnabled:       true,
	}
	mustWriteJSON(t, filepath.Join(dir, "project.json"), project)

	repoDir := filepath.Join(dir, checkpoint.ComponentRepository)
	mustMkdir(t, repoDir)
	mustWriteJSON(t, filepath.Join(repoDir, "repository.json"), repositorySummary{
		DefaultBranch: "main",
		HTTPURL:       project.HTTPURLToRepo,
		Branches:      2,
		HasLFS:        true,
	})

	ciDir := filepath.Join(dir, checkpoint.Dir(checkpoint.ComponentCICD))
	mustMkdir(t, ciDir)
	if err := os.WriteFile(filepath.Join(ciDir, "gitlab-ci.yml"),
		[]byte("stages: [build]\nbuild:\n  script: [make]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mustWriteJSON(t, filepath.Join(ciDir, "environments.json"), []source.Environment{{Name: "prod"}})
	mustWriteJSON(t, filepath.Join(ciDir, "variables.json"), []source.Variable{
		{Key: "REGION"},
		{Key: "DEPLOY_TOKEN", Masked: true},
	})

	issuesDir := filepath.Join(dir, checkpoint.ComponentIssues)
	mustMkdir(t, issuesDir)
	mustWriteJSON(t, filepath.Join(issuesDir, "labels.json"), []source.Label{
		{ID: 1, Name: "bug", Color: "#ff0000"},
	})
	mustWriteJSON(t, filepath.Join(issuesDir, "milestones.json"), []source.Milestone{
		{ID: 5, Title: "v1", State: "active"},
	})
	mustWriteJSON(t, filepath.Join(issuesDir, "issues.json"), []exportedIssue{{
		Issue: source.Issue{
			ID: 100, IID: 1, Title: "crash on start", State: "opened",
			Description: "boom", Author: source.User{Username: "alice"},
			Milestone: &source.Milestone{ID: 5, Title: "v1"},
		},
		Notes: []source.Note{{ID: 200, Body: "repro", Author: source.User{Username: "bob"}}},
	}})

	mrDir := filepath.Join(dir, checkpoint.ComponentMergeRequests)
	mustMkdir(t, mrDir)
	mustWriteJSON(t, filepath.Join(mrDir, "merge_requests.json"), []exportedMR{
		{MergeRequest: source.MergeRequest{
			ID: 300, IID: 2, Title: "fix crash", State: "opened",
			SourceBranch: "fix", TargetBranch: "main", Author: source.User{Username: "alice"},
		}},
		{MergeRequest: source.MergeRequest{
			ID: 301, IID: 3, Title: "old work", State: "merged",
			SourceBranch: "old", TargetBranch: "main",
		}},
	})

	wikiDir := filepath.Join(dir, checkpoint.ComponentWiki)
	mustMkdir(t, wikiDir)
	mustWriteJSON(t, filepath.Join(wikiDir, "pages.json"), []source.WikiPage{
		{Slug: "home", Title: "Home", Format: "markdown"},
	})

	relDir := filepath.Join(dir, checkpoint.ComponentReleases)
	mustMkdir(t, relDir)
	mustWriteJSON(t, filepath.Join(relDir, "releases.json"), []source.Release{
		{TagName: "v1.0.0", Name: "First"},
	})

	pkgDir := filepath.Join(dir, checkpoint.ComponentPackages)
	mustMkdir(t, pkgDir)
	mustWriteJSON(t, filepath.Join(pkgDir, "packages.json"), []exportedPackage{
		{Package: source.Package{ID: 9, Name: "app", Version: "1.0.0", PackageType: "maven"}},
	})

	setDir := filepath.Join(dir, checkpoint.ComponentSettings)
	mustMkdir(t, setDir)
	mustWriteJSON(t, filepath.Join(setDir, "protected_branches.json"), []source.ProtectedBranch{
		{ID: 1, Name: "main", CodeOwnerApprovalRequired: true},
	})
	mustWriteJSON(t, filepath.Join(setDir, "members.json"), map[string][]string{
		"maintainer": {"alice"},
		"developer":  {"carol"},
	})
	mustWriteJSON(t, filepath.Join(setDir, "webhooks.json"), []source.Webhook{
		{ID: 1, URL: "https://hooks.example.com/x", PushEvents: true},
	})

	return dir
}

func mustWriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	if err := writeJSONFile(path, v); err != nil {
		t.Fatal(err)
	}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func planIndex(plan action.Plan) map[string]int {
	idx := map[string]int{}
	for i, spec := range plan {
		if _, ok := idx[spec.Type]; !ok {
			idx[spec.Type] = i
		}
	}
	return idx
}

func TestPlanBuilderOrdering(t *testing.T) {
	dir := planExportTree(t)
	b := NewPlanBuilder(dir, PlanOptions{
		Owner:   "acme",
		UserMap: map[string]string{"alice": "alice-gh", "bob": "bob-gh"},
	})
	plan, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan) == 0 {
		t.Fatal("empty plan")
	}

	idx := planIndex(plan)
	if plan[0].Type != "repo_create" {
		t.Errorf("plan[0] = %s, want repo_create", plan[0].Type)
	}
	order := []string{
		"repo_create", "repo_push", "workflow_commit", "label_create",
		"milestone_create", "issue_create", "issue_comment_add",
		"pr_create", "wiki_push", "release_create", "package_migrate",
		"branch_protection_set", "webhook_create", "metadata_commit",
	}
	for i := 1; i < len(order); i++ {
		prev, ok1 := idx[order[i-1]]
		cur, ok2 := idx[order[i]]
		if !ok1 || !ok2 {
			t.Fatalf("plan misses %s or %s: %v", order[i-1], order[i], idx)
		}
		if prev > cur {
			t.Errorf("%s (#%d) should precede %s (#%d)", order[i-1], prev, order[i], cur)
		}
	}

	for _, spec := range plan {
		if spec.IdempotencyKey == "" {
			t.Errorf("action %s has no idempotency key", spec.ID)
		}
	}
}

func TestPlanBuilderParameters(t *testing.T) {
	dir := planExportTree(t)
	b := NewPlanBuilder(dir, PlanOptions{
		Owner:   "acme",
		UserMap: map[string]string{"alice": "alice-gh", "carol": "carol-gh"},
	})
	plan, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	byType := map[string][]action.Spec{}
	for _, spec := range plan {
		byType[spec.Type] = append(byType[spec.Type], spec)
	}

	repo := byType["repo_create"][0]
	if repo.StringParam("name") != "app" {
		t.Errorf("repo name = %q, want last path segment", repo.StringParam("name"))
	}
	if repo.BoolParam("public") {
		t.Error("private source project must stay private")
	}

	push := byType["repo_push"][0]
	if push.StringParam("source_url") != "https://gitlab.example.com/group/app.git" {
		t.Errorf("push source_url = %q", push.StringParam("source_url"))
	}
	if !push.BoolParam("lfs") {
		t.Error("lfs flag lost")
	}
	if len(byType["lfs_sync"]) != 1 {
		t.Error("lfs_sync expected for an LFS repository")
	}

	issue := byType["issue_create"][0]
	if issue.StringParam("milestone_source_id") != "5" {
		t.Errorf("milestone_source_id = %q", issue.StringParam("milestone_source_id"))
	}

	// Only the opened MR becomes a pull request.
	if got := len(byType["pr_create"]); got != 1 {
		t.Errorf("pr_create actions = %d, want 1", got)
	}
	if head := byType["pr_create"][0].StringParam("head"); head != "fix" {
		t.Errorf("pr head = %q", head)
	}

	// The masked variable goes through the secret path.
	if got := len(byType["secret_set"]); got != 1 {
		t.Errorf("secret_set actions = %d, want 1", got)
	}
	if name := byType["secret_set"][0].StringParam("name"); name != "DEPLOY_TOKEN" {
		t.Errorf("secret name = %q", name)
	}
	if got := len(byType["variable_set"]); got != 1 {
		t.Errorf("variable_set actions = %d, want 1", got)
	}

	// Members map through the user mapping; unmapped users are skipped.
	collabs := byType["collaborator_add"]
	if len(collabs) != 2 {
		t.Fatalf("collaborator_add actions = %d, want 2", len(collabs))
	}
	perms := map[string]string{}
	for _, c := range collabs {
		perms[c.StringParam("username")] = c.StringParam("permission")
	}
	if perms["alice-gh"] != "admin" || perms["carol-gh"] != "push" {
		t.Errorf("collaborator permissions = %v", perms)
	}

	wiki := byType["wiki_push"][0]
	if got := wiki.StringParam("source_url"); got != "https://gitlab.example.com/group/app.wiki.git" {
		t.Errorf("wiki source_url = %q", got)
	}

	prot := byType["branch_protection_set"][0]
	if prot.StringParam("branch") != "main" {
		t.Errorf("protection branch = %q", prot.StringParam("branch"))
	}
	if !prot.BoolParam("require_code_owner_reviews") {
		t.Error("code owner requirement lost in protection mapping")
	}
}

// Attribution headers carry the source author through the content
// transform.
func TestPlanBuilderContentAttribution(t *testing.T) {
	dir := planExportTree(t)
	b := NewPlanBuilder(dir, PlanOptions{
		Owner:   "acme",
		UserMap: map[string]string{"alice": "alice-gh"},
	})
	plan, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, spec := range plan {
		if spec.Type != "issue_create" {
			continue
		}
		body := spec.StringParam("body")
		if body == "boom" {
			t.Error("issue body should carry the migration attribution header")
		}
		return
	}
	t.Fatal("no issue_create action in plan")
}
