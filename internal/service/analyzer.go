package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/domain/estimate"
	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/cache"
	"github.com/Strob0t/ForgeShift/internal/port/llm"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

const (
	defaultAnalyzerWorkers = 4
	groupVarsCacheTTL      = 10 * time.Minute

	// bigMRBacklog and bigIssueBacklog set the risk flags; they match
	// the readiness thresholds.
	bigMRBacklog    = 200
	bigIssueBacklog = 500
)

// AnalyzerOptions configures a deep analysis pass.
type AnalyzerOptions struct {
	TopN    int
	Workers int

	// Model augments the rule-based estimate when set. Every model
	// failure falls back to the rule-based result, so analysis is
	// deterministic unless the model answers cleanly.
	Model llm.Client

	// Cache shares group-scoped responses across workers so sibling
	// projects do not each spend budget on the same group lookup.
	Cache cache.Cache

	Logger  *slog.Logger
	Tracker *Tracker
}

// Analyzer enriches the top-ranked projects of an inventory and
// attaches effort estimates. Workers run in parallel; each mutates
// only its own project entry.
type Analyzer struct {
	src    source.Provider
	budget *forgehttp.Budget
	opts   AnalyzerOptions
	log    *slog.Logger
}

// NewAnalyzer builds a deep analyzer over the same provider and budget
// discovery used.
func NewAnalyzer(src source.Provider, budget *forgehttp.Budget, opts AnalyzerOptions) *Analyzer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultAnalyzerWorkers
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	return &Analyzer{
		src:    src,
		budget: budget,
		opts:   opts,
		log:    log.With("service", "analyzer"),
	}
}

// Analyze ranks the inventory's projects by risk, then enriches and
// estimates the top N in parallel. The dispatcher stops scheduling new
// work once the budget is exhausted; in-flight workers finish their
// current project and keep whatever they gathered.
func (a *Analyzer) Analyze(ctx context.Context, inv *inventory.Inventory) error {
	ranked := estimate.RankTop(inv.Projects, a.opts.TopN)
	if len(ranked) == 0 {
		return nil
	}

	byID := make(map[int64]*inventory.Project, len(inv.Projects))
	for i := range inv.Projects {
		byID[inv.Projects[i].ID] = &inv.Projects[i]
	}

	sem := semaphore.NewWeighted(int64(a.opts.Workers))
	done := make(chan struct{}, len(ranked))
	scheduled := 0

	for _, id := range ranked {
		if a.budget.Exhausted() {
			a.log.Warn("budget spent; skipping remaining deep analysis",
				"remaining", len(ranked)-scheduled)
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		scheduled++
		p := byID[id]
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()
			a.analyzeProject(ctx, p)
		}()
	}

	for i := 0; i < scheduled; i++ {
		<-done
	}
	return ctx.Err()
}

// analyzeProject gathers enrichment for one project and computes its
// estimate. Partial enrichment is kept when a probe fails or the
// budget runs out mid-project.
func (a *Analyzer) analyzeProject(ctx context.Context, p *inventory.Project) {
	log := a.log.With("project", p.PathWithNamespace)
	enr := &inventory.Enrichment{}
	p.Facts.Enrichment = enr

	a.collectRepoProfile(ctx, p, enr)
	a.collectCIProfile(ctx, p, enr)
	a.collectIntegrations(ctx, p, enr)
	a.setRiskFlags(p, enr)

	est := estimate.Compute(p)
	if a.opts.Model != nil {
		if modelEst := a.modelEstimate(ctx, p, est); modelEst != nil {
			est = modelEst
		}
	}
	p.Estimate = est

	log.Info("deep analysis done",
		"work_score", est.WorkScore,
		"bucket", est.Bucket,
		"hours_low", est.HoursLow,
		"hours_high", est.HoursHigh)
}

func (a *Analyzer) collectRepoProfile(ctx context.Context, p *inventory.Project, enr *inventory.Enrichment) {
	rp := &inventory.RepoProfile{HasLFS: p.Facts.HasLFS.IsTrue()}

	branches, err := a.src.ListBranches(ctx, p.ID)
	if err != nil {
		a.noteProbe(p, "repo_profile", err)
	} else {
		enr.Permissions.CanReadRepo = true
		rp.Branches = len(branches)
	}

	if tags, err := a.src.ListTags(ctx, p.ID); err == nil {
		rp.Tags = len(tags)
	}

	if ref := p.DefaultBranch; ref != "" {
		if _, found, err := a.src.RawFile(ctx, p.ID, ref, ".gitmodules"); err == nil {
			rp.HasSubmodules = found
		}
	}

	p.Facts.RepoProfile = rp
}

func (a *Analyzer) collectCIProfile(ctx context.Context, p *inventory.Project, enr *inventory.Enrichment) {
	if p.DefaultBranch == "" || !p.Facts.HasCI.IsTrue() {
		return
	}
	content, found, err := a.src.RawFile(ctx, p.ID, p.DefaultBranch, ".gitlab-ci.yml")
	if err != nil {
		a.noteProbe(p, "ci_profile", err)
		return
	}
	enr.Permissions.CanReadCI = true
	if found {
		p.Facts.CIProfile = estimate.ParseCIProfile(string(content))
	}
}

func (a *Analyzer) collectIntegrations(ctx context.Context, p *inventory.Project, enr *inventory.Enrichment) {
	in := &enr.Integrations

	if protected, err := a.src.ListProtectedBranches(ctx, p.ID); err != nil {
		a.noteProbe(p, "protected_branches", err)
	} else {
		enr.Permissions.CanReadProtectedBranches = true
		in.ProtectedBranches = len(protected)
	}

	if vars, err := a.src.ListProjectVariables(ctx, p.ID); err != nil {
		a.noteProbe(p, "variables", err)
	} else {
		enr.Permissions.CanReadVariables = true
		in.ProjectVariables = len(vars)
	}
	in.GroupVariables = a.groupVariableCount(ctx, p.GroupID)

	if hooks, err := a.src.ListWebhooks(ctx, p.ID); err != nil {
		a.noteProbe(p, "webhooks", err)
	} else {
		enr.Permissions.CanReadWebhooks = true
		in.Webhooks = len(hooks)
	}

	if releases, err := a.src.ListReleases(ctx, p.ID); err == nil {
		in.Releases = len(releases)
	}

	// The project record carries the surface toggles; one extra call
	// covers registry, packages, wiki and pages at once.
	if proj, err := a.src.GetProject(ctx, strconv.FormatInt(p.ID, 10)); err == nil {
		in.ContainerRegistry = proj.ContainerRegistryEnabled
		in.Packages = proj.PackagesEnabled
		in.Wiki = proj.WikiEnabled
		in.Pages = proj.PagesAccessLevel != "" && proj.PagesAccessLevel != "disabled"
	}

	if ref := p.DefaultBranch; ref != "" {
		if entries, err := a.src.ListTree(ctx, p.ID, ref, ""); err == nil {
			for _, e := range entries {
				switch {
				case e.Name == "Dockerfile":
					in.HasDockerfile = true
				case e.Name == "docker-compose.yml" || e.Name == "docker-compose.yaml" || e.Name == "compose.yaml":
					in.HasCompose = true
				case e.Type == "tree" && (e.Name == "k8s" || e.Name == "kubernetes" || e.Name == "manifests" || e.Name == "helm"):
					in.HasK8sManifests = true
				}
			}
		}
		for _, path := range []string{"CODEOWNERS", ".gitlab/CODEOWNERS", "docs/CODEOWNERS"} {
			if _, found, err := a.src.RawFile(ctx, p.ID, ref, path); err == nil && found {
				in.HasCodeowners = true
				break
			}
		}
	}
}

// groupVariableCount looks up a group's variable count through the
// shared cache so sibling projects spend one call per group, not one
// per project.
func (a *Analyzer) groupVariableCount(ctx context.Context, groupID int64) int {
	if groupID == 0 {
		return 0
	}
	key := "group_vars:" + strconv.FormatInt(groupID, 10)
	if a.opts.Cache != nil {
		if raw, ok, err := a.opts.Cache.Get(ctx, key); err == nil && ok {
			var n int
			if json.Unmarshal(raw, &n) == nil {
				return n
			}
		}
	}

	vars, err := a.src.ListGroupVariables(ctx, groupID)
	if err != nil {
		return 0
	}
	if a.opts.Cache != nil {
		if raw, err := json.Marshal(len(vars)); err == nil {
			_ = a.opts.Cache.Set(ctx, key, raw, groupVarsCacheTTL)
		}
	}
	return len(vars)
}

func (a *Analyzer) setRiskFlags(p *inventory.Project, enr *inventory.Enrichment) {
	flags := &enr.RiskFlags
	if ci := p.Facts.CIProfile; ci != nil {
		flags.ComplexCI = estimate.CIScore(ci) >= 20
		flags.SelfHostedRunnerHint = ci.RunnerHints.PossibleSelfHosted
	}
	flags.BigMRBacklog = p.Facts.MRCounts.Total() > bigMRBacklog
	flags.BigIssueBacklog = p.Facts.IssueCounts.Total() > bigIssueBacklog
	flags.ExceededLimits = countCapped(p)
	flags.MissingDefaultBranch = p.DefaultBranch == ""
}

func countCapped(p *inventory.Project) bool {
	mr := p.Facts.MRCounts
	is := p.Facts.IssueCounts
	return mr.Opened.Capped || mr.Merged.Capped || mr.Closed.Capped ||
		is.Opened.Capped || is.Closed.Capped
}

// noteProbe turns a denied or failed probe into a project error unless
// it is the budget sentinel, which the dispatcher observes separately.
func (a *Analyzer) noteProbe(p *inventory.Project, step string, err error) {
	if errors.Is(err, domain.ErrBudgetExhausted) || errors.Is(err, context.Canceled) {
		return
	}
	pe := inventory.ProjectError{
		Step:     step,
		Category: string(domain.CategoryOf(err)),
		Message:  err.Error(),
	}
	if fe, ok := forgehttp.AsError(err); ok {
		pe.Status = fe.Status
		pe.Category = string(fe.Category)
	}
	p.Errors = append(p.Errors, pe)
}

const estimateSystemPrompt = `You estimate software forge migration effort. ` +
	`Answer with a single JSON object of the shape ` +
	`{"hours_low":number,"hours_high":number,"risk":"low|medium|high",` +
	`"breakdown":{"code":{"hours_low":n,"hours_high":n},"mrs":{...},"issues":{...},"ci":{...}},` +
	`"critical_notes":[string],"supported":[string],"not_supported":[string]}. ` +
	`No prose outside the JSON.`

// modelEstimate asks the configured model for an effort breakdown and
// folds it over the rule-based baseline. Any parse or transport
// failure returns nil so the caller keeps the baseline.
func (a *Analyzer) modelEstimate(ctx context.Context, p *inventory.Project, base *inventory.Estimate) *inventory.Estimate {
	facts, err := json.Marshal(p.Facts)
	if err != nil {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project %s (archived=%t, default_branch=%q).\n",
		p.PathWithNamespace, p.Archived, p.DefaultBranch)
	fmt.Fprintf(&sb, "Gathered facts: %s\n", facts)
	fmt.Fprintf(&sb, "Rule-based baseline: %.1f-%.1f hours, work score %d/100.\n",
		base.HoursLow, base.HoursHigh, base.WorkScore)
	sb.WriteString("Estimate the migration effort to a GitHub-style forge.")

	answer, err := a.opts.Model.Complete(ctx, llm.Request{
		System:      estimateSystemPrompt,
		Prompt:      sb.String(),
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		a.log.Warn("model estimate failed; keeping rule-based",
			"project", p.PathWithNamespace, "error", err)
		return nil
	}

	modelEst, err := estimate.ParseModelEstimate(answer)
	if err != nil {
		a.log.Warn("model answer unusable; keeping rule-based",
			"project", p.PathWithNamespace, "error", err)
		return nil
	}
	return modelEst.Apply(base)
}
