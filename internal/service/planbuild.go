package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/ForgeShift/internal/domain/action"
	"github.com/Strob0t/ForgeShift/internal/domain/checkpoint"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
	"github.com/Strob0t/ForgeShift/internal/port/source"
	"github.com/Strob0t/ForgeShift/internal/transform"
)

// PlanOptions configures plan derivation from one export tree.
type PlanOptions struct {
	// Owner and Repo are the destination coordinates. An empty Repo
	// defaults to the last segment of the source path.
	Owner string
	Repo  string

	// UserMap maps source usernames to destination logins, typically
	// produced by the users transformer.
	UserMap map[string]string

	// SourceRegistry and DestRegistry feed the CI conversion's
	// registry rewriting.
	SourceRegistry string
	DestRegistry   string

	// SubmoduleMapping rewrites submodule URLs; keys and values are
	// normalized prefixes.
	SubmoduleMapping map[string]string

	// MirrorRoot is where repo_push and wiki_push stage their local
	// mirrors.
	MirrorRoot string

	Logger *slog.Logger
}

// PlanBuilder turns an export artifact tree into an ordered action
// plan. Building is pure file reading plus transformations; nothing
// touches either forge.
type PlanBuilder struct {
	dir  string
	opts PlanOptions
	log  *slog.Logger

	plan    action.Plan
	results map[string]transform.Result
	seq     int
}

// NewPlanBuilder builds a planner over an export directory
// (<output>/<project_id>/<run_id>).
func NewPlanBuilder(exportDir string, opts PlanOptions) *PlanBuilder {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.MirrorRoot == "" {
		opts.MirrorRoot = filepath.Join(exportDir, "mirrors")
	}
	return &PlanBuilder{
		dir:     exportDir,
		opts:    opts,
		log:     log.With("service", "plan"),
		results: map[string]transform.Result{},
	}
}

// TransformResults exposes the transformation outcomes gathered while
// building, for the gap report.
func (b *PlanBuilder) TransformResults() map[string]transform.Result {
	return b.results
}

// Build derives the plan. Actions appear in dependency order: the
// repository first, then CI, issue machinery, pull requests, wiki,
// releases, packages, and settings last. Cross-action references are
// resolved at execution time through the id mappings the earlier
// actions record.
func (b *PlanBuilder) Build() (action.Plan, error) {
	var project source.Project
	if err := readJSONFile(filepath.Join(b.dir, "project.json"), &project); err != nil {
		return nil, fmt.Errorf("read exported project: %w", err)
	}
	if b.opts.Repo == "" {
		segments := strings.Split(project.PathWithNamespace, "/")
		b.opts.Repo = segments[len(segments)-1]
	}

	b.addRepository(&project)
	b.addCICD(&project)
	b.addIssues(&project)
	b.addMergeRequests(&project)
	b.addWiki(&project)
	b.addReleases(&project)
	b.addPackages()
	b.addSettings(&project)
	b.addMetadata(&project)

	return b.plan, nil
}

func (b *PlanBuilder) add(actionType string, params map[string]any, idemKey string) {
	b.seq++
	b.plan = append(b.plan, action.Spec{
		ID:             fmt.Sprintf("a%03d_%s", b.seq, actionType),
		Type:           actionType,
		Parameters:     params,
		IdempotencyKey: idemKey,
	})
}

func (b *PlanBuilder) idem(parts ...string) string {
	return b.opts.Owner + "/" + b.opts.Repo + ":" + strings.Join(parts, ":")
}

func (b *PlanBuilder) component(name string) string {
	return filepath.Join(b.dir, checkpoint.Dir(name))
}

func (b *PlanBuilder) contentOptions(author string, createdAt time.Time, sourceURL string) transform.ContentOptions {
	return transform.ContentOptions{
		UserMap:   b.opts.UserMap,
		DestRepo:  b.opts.Owner + "/" + b.opts.Repo,
		Author:    author,
		CreatedAt: createdAt,
		SourceURL: sourceURL,
	}
}

func (b *PlanBuilder) rewriteBody(key, body, author string, createdAt time.Time, sourceURL string) string {
	res := transform.Content(body, b.contentOptions(author, createdAt, sourceURL))
	b.results[key] = res
	if s, ok := res.Data.(string); ok {
		return s
	}
	return body
}

func (b *PlanBuilder) addRepository(project *source.Project) {
	b.add("repo_create", map[string]any{
		"name":        b.opts.Repo,
		"description": project.Description,
		"public":      project.Visibility == "public",
		"has_wiki":    project.WikiEnabled,
	}, b.idem("repo_create"))

	var repo repositorySummary
	if err := readJSONFile(filepath.Join(b.component(checkpoint.ComponentRepository), "repository.json"), &repo); err != nil {
		b.log.Warn("repository component missing; pushing from project metadata", "error", err)
		repo = repositorySummary{
			DefaultBranch: project.DefaultBranch,
			EmptyRepo:     project.EmptyRepo,
			HTTPURL:       project.HTTPURLToRepo,
		}
	}

	b.add("repo_push", map[string]any{
		"source_url": repo.HTTPURL,
		"mirror_dir": filepath.Join(b.opts.MirrorRoot, "repo"),
		"empty":      repo.EmptyRepo,
		"lfs":        repo.HasLFS,
	}, b.idem("repo_push"))

	if repo.HasLFS {
		b.add("lfs_sync", map[string]any{
			"mirror_dir": filepath.Join(b.opts.MirrorRoot, "repo"),
		}, b.idem("lfs_sync"))
	}

	if len(repo.Submodules) > 0 {
		raw, err := os.ReadFile(filepath.Join(b.component(checkpoint.ComponentRepository), "gitmodules"))
		if err == nil {
			res := transform.Submodules(string(raw), transform.SubmoduleOptions{Mapping: b.opts.SubmoduleMapping})
			b.results["submodules"] = res
			if rewritten, ok := res.Data.(string); ok && res.Success {
				b.add("gitmodules_commit", map[string]any{
					"content": rewritten,
					"message": "Rewrite submodule URLs for migrated repositories",
					"branch":  repo.DefaultBranch,
				}, b.idem("gitmodules"))
			}
		}
	}
}

func (b *PlanBuilder) addCICD(project *source.Project) {
	dir := b.component(checkpoint.ComponentCICD)

	if raw, err := os.ReadFile(filepath.Join(dir, "gitlab-ci.yml")); err == nil {
		res := transform.CI(raw, transform.CIOptions{
			WorkflowName:   "CI",
			SourceRegistry: b.opts.SourceRegistry,
			DestRegistry:   b.opts.DestRegistry,
		})
		b.results["ci"] = res
		if workflow, ok := res.Data.(string); ok && res.Success {
			b.add("workflow_commit", map[string]any{
				"content": workflow,
				"path":    ".github/workflows/ci.yml",
				"message": "Add converted CI workflow",
				"branch":  project.DefaultBranch,
			}, b.idem("workflow"))
		}
	}

	var environments []source.Environment
	if err := readJSONFile(filepath.Join(dir, "environments.json"), &environments); err == nil {
		for _, env := range environments {
			b.add("environment_create", map[string]any{
				"name": env.Name,
			}, b.idem("environment", env.Name))
		}
	}

	var variables []source.Variable
	if err := readJSONFile(filepath.Join(dir, "variables.json"), &variables); err == nil {
		for _, v := range variables {
			if v.Protected || v.Masked {
				// Secret values never left the source; the secret_set
				// action pulls a staged value from the vault or reports
				// manual follow-up.
				b.add("secret_set", map[string]any{
					"name": v.Key,
				}, b.idem("secret", v.Key))
				continue
			}
			b.add("variable_set", map[string]any{
				"name": v.Key,
			}, b.idem("variable", v.Key))
		}
	}
}

func (b *PlanBuilder) addIssues(project *source.Project) {
	dir := b.component(checkpoint.ComponentIssues)

	var labels []source.Label
	if err := readJSONFile(filepath.Join(dir, "labels.json"), &labels); err == nil {
		for _, l := range labels {
			name := transform.CleanLabel(l.Name)
			b.add("label_create", map[string]any{
				"name":        name,
				"color":       strings.TrimPrefix(l.Color, "#"),
				"description": l.Description,
			}, b.idem("label", name))
		}
	}

	var milestones []source.Milestone
	if err := readJSONFile(filepath.Join(dir, "milestones.json"), &milestones); err == nil {
		for _, m := range milestones {
			state := "open"
			if m.State == "closed" {
				state = "closed"
			}
			b.add("milestone_create", map[string]any{
				"source_id":   strconv.FormatInt(m.ID, 10),
				"title":       m.Title,
				"description": m.Description,
				"state":       state,
				"due_on":      m.DueDate,
			}, b.idem("milestone", m.Title))
		}
	}

	var issues []exportedIssue
	if err := readJSONFile(filepath.Join(dir, "issues.json"), &issues); err != nil {
		return
	}
	for _, issue := range issues {
		key := strconv.FormatInt(issue.ID, 10)
		body := b.rewriteBody("issue:"+key, issue.Description,
			issue.Author.Username, issue.CreatedAt, issue.WebURL)

		params := map[string]any{
			"source_id": key,
			"title":     issue.Title,
			"body":      body,
			"labels":    transform.CleanLabels(issue.Labels),
			"state":     issue.State,
		}
		if issue.Milestone != nil {
			params["milestone_source_id"] = strconv.FormatInt(issue.Milestone.ID, 10)
		}
		if assignees := b.mapUsers(issue.Assignees); len(assignees) > 0 {
			params["assignees"] = assignees
		}
		b.add("issue_create", params, b.idem("issue", key))

		for _, note := range issue.Notes {
			noteKey := strconv.FormatInt(note.ID, 10)
			noteBody := b.rewriteBody("issue_note:"+noteKey, note.Body,
				note.Author.Username, note.CreatedAt, issue.WebURL)
			b.add("issue_comment_add", map[string]any{
				"issue_id": key,
				"body":     noteBody,
			}, b.idem("issue_comment", noteKey))
		}
	}
}

func (b *PlanBuilder) addMergeRequests(project *source.Project) {
	var mrs []exportedMR
	if err := readJSONFile(filepath.Join(b.component(checkpoint.ComponentMergeRequests), "merge_requests.json"), &mrs); err != nil {
		return
	}

	for _, mr := range mrs {
		if mr.State != "opened" {
			// Merged and closed history lives in the pushed git
			// history; recreating every closed MR as a PR would bury
			// the destination in noise.
			continue
		}
		key := strconv.FormatInt(mr.ID, 10)
		body := b.rewriteBody("mr:"+key, mr.Description,
			mr.Author.Username, mr.CreatedAt, mr.WebURL)

		b.add("pr_create", map[string]any{
			"source_id": key,
			"title":     mr.Title,
			"body":      body,
			"head":      mr.SourceBranch,
			"base":      mr.TargetBranch,
			"draft":     mr.Draft || mr.WorkInProgress,
			"state":     mr.State,
		}, b.idem("pr", key))

		for _, d := range mr.Discussions {
			for _, note := range d.Notes {
				noteKey := strconv.FormatInt(note.ID, 10)
				noteBody := b.rewriteBody("mr_note:"+noteKey, note.Body,
					note.Author.Username, note.CreatedAt, mr.WebURL)
				if note.Position != nil && note.Position.NewPath != "" {
					noteBody = fmt.Sprintf("**%s**\n\n%s", note.Position.NewPath, noteBody)
				}
				b.add("pr_comment_add", map[string]any{
					"pr_id": key,
					"body":  noteBody,
				}, b.idem("pr_comment", noteKey))
			}
		}
	}
}

func (b *PlanBuilder) addWiki(project *source.Project) {
	var pages []source.WikiPage
	if err := readJSONFile(filepath.Join(b.component(checkpoint.ComponentWiki), "pages.json"), &pages); err != nil || len(pages) == 0 {
		return
	}

	// The source wiki is itself a git repository next to the project.
	wikiURL := strings.TrimSuffix(project.HTTPURLToRepo, ".git") + ".wiki.git"
	b.add("wiki_push", map[string]any{
		"source_url": wikiURL,
		"mirror_dir": filepath.Join(b.opts.MirrorRoot, "wiki"),
	}, b.idem("wiki_push"))
}

func (b *PlanBuilder) addReleases(project *source.Project) {
	var releases []source.Release
	if err := readJSONFile(filepath.Join(b.component(checkpoint.ComponentReleases), "releases.json"), &releases); err != nil {
		return
	}

	for _, r := range releases {
		body := b.rewriteBody("release:"+r.TagName, r.Description,
			r.Author.Username, r.CreatedAt, "")
		b.add("release_create", map[string]any{
			"source_id": r.TagName,
			"tag":       r.TagName,
			"name":      r.Name,
			"body":      body,
		}, b.idem("release", r.TagName))
	}
}

func (b *PlanBuilder) addPackages() {
	var packages []exportedPackage
	if err := readJSONFile(filepath.Join(b.component(checkpoint.ComponentPackages), "packages.json"), &packages); err != nil {
		return
	}
	for _, pkg := range packages {
		b.add("package_migrate", map[string]any{
			"name":         pkg.Name,
			"package_type": pkg.PackageType,
			"version":      pkg.Version,
		}, b.idem("package", pkg.Name, pkg.Version))
	}
}

func (b *PlanBuilder) addSettings(project *source.Project) {
	dir := b.component(checkpoint.ComponentSettings)

	var protected []source.ProtectedBranch
	if err := readJSONFile(filepath.Join(dir, "protected_branches.json"), &protected); err == nil && len(protected) > 0 {
		res := transform.Protections(protected, transform.ProtectionOptions{})
		b.results["protections"] = res
		if set, ok := res.Data.(transform.ProtectionSet); ok {
			for _, rule := range set.Rules {
				b.add("branch_protection_set", map[string]any{
					"branch":                     rule.Branch,
					"required_reviews":           rule.Params.RequiredReviews,
					"require_code_owner_reviews": rule.Params.RequireCodeOwnerReviews,
					"enforce_admins":             rule.Params.EnforceAdmins,
					"allow_force_pushes":         rule.Params.AllowForcePushes,
				}, b.idem("protection", rule.Branch))
			}
		}
	}

	var members map[string][]string
	if err := readJSONFile(filepath.Join(dir, "members.json"), &members); err == nil {
		levels := make([]string, 0, len(members))
		for level := range members {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		for _, level := range levels {
			permission := collaboratorPermission(level)
			if permission == "" {
				continue
			}
			for _, username := range members[level] {
				login, ok := b.opts.UserMap[username]
				if !ok {
					continue
				}
				b.add("collaborator_add", map[string]any{
					"username":   login,
					"permission": permission,
				}, b.idem("collaborator", login))
			}
		}
	}

	var hooks []source.Webhook
	if err := readJSONFile(filepath.Join(dir, "webhooks.json"), &hooks); err == nil && len(hooks) > 0 {
		res := transform.Webhooks(hooks)
		b.results["webhooks"] = res
		if params, ok := res.Data.([]dest.WebhookParams); ok {
			for i, wh := range params {
				b.add("webhook_create", map[string]any{
					"url":          wh.URL,
					"events":       wh.Events,
					"content_type": wh.ContentType,
				}, b.idem("webhook", strconv.Itoa(i)))
			}
		}
	}
}

// addMetadata commits a migration record into the destination
// repository so the provenance of the import is discoverable later.
func (b *PlanBuilder) addMetadata(project *source.Project) {
	record := fmt.Sprintf(
		"{\n  \"migrated_from\": %q,\n  \"source_project_id\": %d,\n  \"migrated_at\": %q\n}\n",
		project.WebURL, project.ID, time.Now().UTC().Format(time.RFC3339))
	b.add("metadata_commit", map[string]any{
		"content": record,
		"path":    ".migration/source.json",
		"message": "Record migration provenance",
		"branch":  project.DefaultBranch,
	}, b.idem("metadata"))
}

func (b *PlanBuilder) mapUsers(users []source.User) []string {
	var out []string
	for _, u := range users {
		if login, ok := b.opts.UserMap[u.Username]; ok {
			out = append(out, login)
		}
	}
	return out
}

// collaboratorPermission maps a source access-level label to the
// destination permission; labels with no write meaning map to read.
func collaboratorPermission(level string) string {
	switch level {
	case "owner", "maintainer":
		return "admin"
	case "developer":
		return "push"
	case "reporter", "guest":
		return "pull"
	}
	return ""
}
