package transform

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rhysd/actionlint"
	"gopkg.in/yaml.v3"
)

// CIOptions configures pipeline conversion.
type CIOptions struct {
	// WorkflowName is the name of the generated workflow.
	WorkflowName string
	// DefaultBranches are the branch filters used when the source
	// pipeline declares no only/except/rules conditions.
	DefaultBranches []string
	// SourceRegistry and DestRegistry rewrite container registry
	// references in scripts, images and variables.
	SourceRegistry string
	DestRegistry   string
}

// ConversionGap is a pipeline construct that could not be converted
// automatically.
type ConversionGap struct {
	Construct string `json:"construct"`
	Location  string `json:"location"`
	Suggested string `json:"suggested"`
}

// Variables with a destination expression equivalent. CI_REGISTRY and
// CI_REGISTRY_IMAGE are handled separately because they depend on the
// configured destination registry.
var ciVarMap = map[string]string{
	"CI_COMMIT_SHA":         "${{ github.sha }}",
	"CI_COMMIT_SHORT_SHA":   "${{ github.sha }}",
	"CI_COMMIT_REF_NAME":    "${{ github.ref_name }}",
	"CI_COMMIT_BRANCH":      "${{ github.ref_name }}",
	"CI_COMMIT_TAG":         "${{ github.ref_name }}",
	"CI_PROJECT_PATH":       "${{ github.repository }}",
	"CI_PROJECT_NAME":       "${{ github.event.repository.name }}",
	"CI_PROJECT_DIR":        "${{ github.workspace }}",
	"CI_PIPELINE_ID":        "${{ github.run_id }}",
	"CI_PIPELINE_IID":       "${{ github.run_number }}",
	"CI_JOB_TOKEN":          "${{ secrets.GITHUB_TOKEN }}",
	"CI_REGISTRY_USER":      "${{ github.actor }}",
	"CI_REGISTRY_PASSWORD":  "${{ secrets.GITHUB_TOKEN }}",
	"CI_DEFAULT_BRANCH":     "${{ github.event.repository.default_branch }}",
	"CI_MERGE_REQUEST_IID":  "${{ github.event.pull_request.number }}",
	"CI_SERVER_URL":         "${{ github.server_url }}",
	"GITLAB_USER_LOGIN":     "${{ github.actor }}",
	"GITLAB_USER_NAME":      "${{ github.actor }}",
}

var ciVarRe = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)

// Top-level keys that are not jobs.
var ciReservedKeys = map[string]bool{
	"stages": true, "variables": true, "include": true, "workflow": true,
	"default": true, "image": true, "services": true, "before_script": true,
	"after_script": true, "cache": true, "types": true,
}

// CI converts a source pipeline definition into a destination workflow
// document. Job order, stage-implied dependencies and script content
// survive the conversion; constructs without an equivalent are appended
// to metadata conversion_gaps with a suggested manual action. The
// generated document is validated with actionlint and findings surface
// as warnings.
func CI(content []byte, opts CIOptions) Result {
	res := newResult()

	if opts.WorkflowName == "" {
		opts.WorkflowName = "CI"
	}
	if len(opts.DefaultBranches) == 0 {
		opts.DefaultBranches = []string{"main", "master"}
	}
	if opts.DestRegistry == "" {
		opts.DestRegistry = "ghcr.io"
	}

	c := &ciConverter{
		opts:        opts,
		res:         &res,
		unknownVars: map[string]bool{},
		jobIDs:      map[string]string{},
		usedIDs:     map[string]bool{},
		templates:   map[string]*yaml.Node{},
	}

	cfg, err := c.parse(content)
	if err != nil {
		res.errorf("%v", err)
		return res
	}

	doc, ok := c.convert(cfg)
	if !ok {
		return res
	}

	rendered, err := yaml.Marshal(doc)
	if err != nil {
		res.errorf("render workflow: %v", err)
		return res
	}

	c.lint(rendered)

	res.Data = string(rendered)
	res.Metadata["conversion_gaps"] = c.gaps
	res.Metadata["jobs"] = len(c.converted)
	res.Metadata["workflow_name"] = opts.WorkflowName
	return res
}

// workflowDoc is the marshalled shape of the generated workflow. On and
// Env marshal with sorted keys; Jobs is a prebuilt node tree so jobs
// keep their source order.
type workflowDoc struct {
	Name string            `yaml:"name"`
	On   map[string]any    `yaml:"on"`
	Env  map[string]string `yaml:"env,omitempty"`
	Jobs yaml.Node         `yaml:"jobs"`
}

type ciConverter struct {
	opts        CIOptions
	res         *Result
	gaps        []ConversionGap
	unknownVars map[string]bool
	jobIDs      map[string]string
	usedIDs     map[string]bool
	templates   map[string]*yaml.Node
	stages      []string
	stageJobs   map[string][]string
	converted   []string
}

func (c *ciConverter) gap(construct, location, suggested string) {
	c.gaps = append(c.gaps, ConversionGap{Construct: construct, Location: location, Suggested: suggested})
}

// ciConfig is the parsed source pipeline.
type ciConfig struct {
	Stages     []string
	Variables  map[string]flexString
	DefaultTop *yaml.Node // merged default: block and legacy top-level job keys
	Jobs       []ciNamedJob
}

type ciNamedJob struct {
	Name string
	Node *yaml.Node
}

func (c *ciConverter) parse(content []byte) (*ciConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("pipeline definition is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("pipeline root is not a mapping")
	}

	cfg := &ciConfig{Variables: map[string]flexString{}}
	defaults := newMapNode()

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch {
		case key.Value == "stages" || (key.Value == "types" && len(cfg.Stages) == 0):
			if err := val.Decode(&cfg.Stages); err != nil {
				return nil, fmt.Errorf("line %d: decode stages: %w", val.Line, err)
			}
		case key.Value == "variables":
			if err := val.Decode(&cfg.Variables); err != nil {
				return nil, fmt.Errorf("line %d: decode variables: %w", val.Line, err)
			}
		case key.Value == "include":
			c.gap("include", "top level", "convert included templates to reusable workflows")
		case key.Value == "workflow":
			c.gap("workflow.rules", "top level", "gate runs with if: conditions or a concurrency group")
		case key.Value == "default":
			if val.Kind == yaml.MappingNode {
				defaults = mergeMappingNodes(defaults, val)
			}
		case ciReservedKeys[key.Value]:
			// Legacy top-level job defaults: image, services, scripts, cache.
			addNodePair(defaults, key.Value, val)
		case strings.HasPrefix(key.Value, "."):
			c.templates[key.Value] = val
		default:
			if val.Kind != yaml.MappingNode {
				c.res.warnf("job %q is not a mapping; skipped", key.Value)
				continue
			}
			cfg.Jobs = append(cfg.Jobs, ciNamedJob{Name: key.Value, Node: val})
		}
	}

	if len(defaults.Content) > 0 {
		cfg.DefaultTop = defaults
	}
	if len(cfg.Stages) == 0 {
		cfg.Stages = []string{".pre", "build", "test", "deploy", ".post"}
	}
	return cfg, nil
}

// resolveJob applies defaults and the extends chain, job keys last.
func (c *ciConverter) resolveJob(cfg *ciConfig, name string, node *yaml.Node, visited map[string]bool) (*yaml.Node, error) {
	effective := newMapNode()
	if cfg.DefaultTop != nil {
		effective = mergeMappingNodes(effective, cfg.DefaultTop)
	}

	var ext multiString
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "extends" {
			if err := ext.UnmarshalYAML(node.Content[i+1]); err != nil {
				return nil, fmt.Errorf("job %q: decode extends: %w", name, err)
			}
		}
	}
	for _, parent := range ext {
		if visited[parent] {
			return nil, fmt.Errorf("job %q: extends cycle through %q", name, parent)
		}
		tmpl, ok := c.templates[parent]
		if !ok || tmpl.Kind != yaml.MappingNode {
			c.gap("extends", "job "+name, fmt.Sprintf("template %q is not in this file; inline it or convert it to a reusable workflow", parent))
			continue
		}
		visited[parent] = true
		resolved, err := c.resolveJob(cfg, parent, tmpl, visited)
		if err != nil {
			return nil, err
		}
		effective = mergeMappingNodes(effective, resolved)
	}

	return mergeMappingNodes(effective, node), nil
}

func (c *ciConverter) convert(cfg *ciConfig) (*workflowDoc, bool) {
	type parsedJob struct {
		name string
		id   string
		job  ciJob
	}

	c.stages = cfg.Stages
	c.stageJobs = map[string][]string{}

	var jobs []parsedJob
	trig := &triggerState{}
	for _, nj := range cfg.Jobs {
		node, err := c.resolveJob(cfg, nj.Name, nj.Node, map[string]bool{})
		if err != nil {
			c.res.errorf("%v", err)
			return nil, false
		}
		var job ciJob
		if err := node.Decode(&job); err != nil {
			c.res.errorf("job %q: %v", nj.Name, err)
			return nil, false
		}

		if job.Trigger != nil {
			c.gap("trigger", "job "+nj.Name, "call the downstream pipeline as a reusable workflow or with repository_dispatch")
			continue
		}
		if len(job.Script) == 0 {
			c.res.warnf("job %q has no script; skipped", nj.Name)
			continue
		}

		c.inferTriggers(trig, nj.Name, &job)

		id := c.assignJobID(nj.Name)
		if job.Stage == "" {
			job.Stage = "test"
		}
		c.ensureStage(job.Stage)
		c.stageJobs[job.Stage] = append(c.stageJobs[job.Stage], id)
		jobs = append(jobs, parsedJob{name: nj.Name, id: id, job: job})
	}

	if len(jobs) == 0 {
		c.res.errorf("pipeline has no runnable jobs")
		return nil, false
	}

	jobsNode := newMapNode()
	for _, pj := range jobs {
		addNodePair(jobsNode, pj.id, c.renderJob(pj.name, pj.id, &pj.job))
		c.converted = append(c.converted, pj.id)
	}

	doc := &workflowDoc{
		Name: c.opts.WorkflowName,
		On:   c.renderTriggers(trig),
		Jobs: *jobsNode,
	}
	if len(cfg.Variables) > 0 {
		keys := make([]string, 0, len(cfg.Variables))
		for k := range cfg.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env := make(map[string]string, len(keys))
		for _, k := range keys {
			env[k] = c.rewriteValue(string(cfg.Variables[k]))
		}
		doc.Env = env
	}
	return doc, true
}

// triggerState accumulates workflow trigger evidence across jobs.
type triggerState struct {
	saw          bool
	allBranches  bool
	pushBranches []string
	pushTags     bool
	prBranches   bool
	dispatch     bool
}

func (c *ciConverter) inferTriggers(t *triggerState, name string, job *ciJob) {
	loc := "job " + name

	if len(job.Rules) > 0 {
		t.saw = true
		c.gap("rules", loc, "express the conditions as if: expressions on the job")
	}
	if job.Except != nil {
		t.saw = true
		c.gap("except", loc, "invert the condition into an if: expression")
	}
	if job.Only != nil {
		t.saw = true
		if job.Only.Complex {
			c.gap("only", loc, "model refs/changes/variables filters with path filters and if: conditions")
		}
		for _, ref := range job.Only.Refs {
			switch {
			case ref == "branches":
				t.allBranches = true
			case ref == "tags":
				t.pushTags = true
			case ref == "merge_requests" || ref == "external_pull_requests":
				t.prBranches = true
			case ref == "schedules":
				c.gap("only:schedules", loc, "add an on.schedule cron trigger matching the source pipeline schedule")
			case ref == "web" || ref == "api" || ref == "triggers" || ref == "pipelines" || ref == "chat":
				c.gap("only:"+ref, loc, "trigger the workflow with workflow_dispatch or repository_dispatch")
				t.dispatch = true
			case strings.HasPrefix(ref, "/") && strings.HasSuffix(ref, "/"):
				c.gap("only:"+ref, loc, "replace the ref pattern with explicit branch filters")
			default:
				t.pushBranches = append(t.pushBranches, ref)
			}
		}
	}
	if job.When == "manual" {
		t.dispatch = true
	}
}

func (c *ciConverter) renderTriggers(t *triggerState) map[string]any {
	on := map[string]any{}
	if !t.saw {
		on["push"] = map[string]any{"branches": c.opts.DefaultBranches}
		on["pull_request"] = map[string]any{"branches": c.opts.DefaultBranches}
	} else {
		push := map[string]any{}
		if !t.allBranches && len(t.pushBranches) > 0 {
			push["branches"] = dedupeStrings(t.pushBranches)
		}
		if t.pushTags {
			push["tags"] = []string{"*"}
		}
		switch {
		case t.allBranches || len(push) > 0:
			on["push"] = push
		case !t.prBranches:
			// Nothing inferable; keep the workflow runnable on the
			// default branches rather than generating one that never fires.
			on["push"] = map[string]any{"branches": c.opts.DefaultBranches}
		}
		if t.prBranches {
			on["pull_request"] = map[string]any{"branches": c.opts.DefaultBranches}
		}
	}
	if t.dispatch {
		on["workflow_dispatch"] = map[string]any{}
	}
	return on
}

func (c *ciConverter) assignJobID(name string) string {
	id := sanitizeJobID(name)
	base := id
	for n := 2; c.usedIDs[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	c.usedIDs[id] = true
	c.jobIDs[name] = id
	return id
}

func (c *ciConverter) ensureStage(stage string) {
	for _, s := range c.stages {
		if s == stage {
			return
		}
	}
	c.stages = append(c.stages, stage)
}

// stageNeeds returns the jobs of the nearest preceding non-empty stage.
func (c *ciConverter) stageNeeds(stage string) []string {
	idx := -1
	for i, s := range c.stages {
		if s == stage {
			idx = i
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if jobs := c.stageJobs[c.stages[i]]; len(jobs) > 0 {
			return jobs
		}
	}
	return nil
}

func (c *ciConverter) renderJob(name, id string, job *ciJob) *yaml.Node {
	loc := "job " + name
	out := newMapNode()
	addNodePair(out, "name", strNode(name))

	if len(job.Tags) > 0 {
		c.res.warnf("job %q runner tags %v mapped to self-hosted labels; provision matching runners", name, job.Tags)
		addNodePair(out, "runs-on", strSeqNode(append([]string{"self-hosted"}, job.Tags...)))
	} else {
		addNodePair(out, "runs-on", strNode("ubuntu-latest"))
	}

	if job.Image != nil && job.Image.Name != "" {
		if len(job.Image.Entrypoint) > 0 {
			c.res.warnf("job %q image entrypoint is dropped; the container runs with its default entrypoint", name)
		}
		addNodePair(out, "container", strNode(c.rewriteValue(job.Image.Name)))
	}

	if svc := c.renderServices(name, job.Services); svc != nil {
		addNodePair(out, "services", svc)
	}

	if job.Environment != nil {
		if job.Environment.URL != "" {
			env := newMapNode()
			addNodePair(env, "name", strNode(job.Environment.Name))
			addNodePair(env, "url", c.rewrittenStrNode(job.Environment.URL))
			addNodePair(out, "environment", env)
		} else {
			addNodePair(out, "environment", strNode(job.Environment.Name))
		}
	}

	if needs := c.renderNeeds(name, job); len(needs) > 0 {
		addNodePair(out, "needs", strSeqNode(needs))
	}

	if cond := c.jobCondition(name, job); cond != "" {
		addNodePair(out, "if", strNode(cond))
	}

	if job.AllowFailure != nil && job.AllowFailure.Allowed {
		addNodePair(out, "continue-on-error", boolNode(true))
	}

	if job.Timeout != "" {
		if mins, ok := parseCITimeout(job.Timeout); ok {
			addNodePair(out, "timeout-minutes", intNode(mins))
		} else {
			c.gap("timeout", loc, fmt.Sprintf("set timeout-minutes by hand; %q did not parse", job.Timeout))
		}
	}

	if job.ResourceGroup != "" {
		cc := newMapNode()
		addNodePair(cc, "group", strNode(job.ResourceGroup))
		addNodePair(out, "concurrency", cc)
	}

	if job.Retry != nil {
		c.gap("retry", loc, "re-run failed jobs manually or wrap the step in a retry action")
	}
	if job.Parallel != nil {
		c.gap("parallel", loc, "use a strategy.matrix over an index dimension")
	}
	if job.Coverage != "" {
		c.res.warnf("job %q coverage extraction is not carried over; use a coverage action", name)
	}
	if len(job.Dependencies) > 0 {
		c.gap("dependencies", loc, "add actions/download-artifact@v4 steps to the consuming job")
	}
	if job.Artifacts != nil && job.Artifacts.Reports != nil {
		c.gap("artifacts:reports", loc, "publish test reports with a reporter action")
	}
	if job.When == "delayed" {
		c.gap("when:delayed", loc, "schedule the run or add a sleep step; start_in has no equivalent")
	}

	if env := c.renderJobEnv(job.Variables); env != nil {
		addNodePair(out, "env", env)
	}

	addNodePair(out, "steps", c.renderSteps(id, job))
	return out
}

func (c *ciConverter) renderServices(name string, services []ciService) *yaml.Node {
	if len(services) == 0 {
		return nil
	}
	out := newMapNode()
	for _, svc := range services {
		if strings.Contains(svc.Name, "dind") {
			c.gap("services:docker-in-docker", "job "+name, "run docker commands directly on the runner or use a self-hosted runner")
			continue
		}
		key := svc.Alias
		if key == "" {
			key = serviceKey(svc.Name)
		}
		val := newMapNode()
		addNodePair(val, "image", strNode(c.rewriteValue(svc.Name)))
		addNodePair(out, key, val)
	}
	if len(out.Content) == 0 {
		return nil
	}
	return out
}

func (c *ciConverter) renderNeeds(name string, job *ciJob) []string {
	if job.Needs != nil {
		var out []string
		for _, n := range job.Needs {
			id, ok := c.jobIDs[n.Job]
			if !ok {
				c.res.warnf("job %q needs unknown job %q; dependency dropped", name, n.Job)
				continue
			}
			out = append(out, id)
		}
		return out
	}
	return c.stageNeeds(job.Stage)
}

func (c *ciConverter) jobCondition(name string, job *ciJob) string {
	switch job.When {
	case "always":
		return "always()"
	case "on_failure":
		return "failure()"
	case "manual":
		c.gap("when:manual", "job "+name, "the job runs only from the workflow_dispatch trigger; review whether it needs an environment protection rule")
		return "github.event_name == 'workflow_dispatch'"
	}
	return ""
}

func (c *ciConverter) renderJobEnv(vars map[string]flexString) *yaml.Node {
	if len(vars) == 0 {
		return nil
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := newMapNode()
	for _, k := range keys {
		addNodePair(out, k, c.rewrittenStrNode(string(vars[k])))
	}
	return out
}

func (c *ciConverter) renderSteps(id string, job *ciJob) *yaml.Node {
	steps := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}

	checkout := newMapNode()
	addNodePair(checkout, "uses", strNode("actions/checkout@v4"))
	steps.Content = append(steps.Content, checkout)

	if job.Cache != nil {
		for i, entry := range job.Cache.Entries {
			if len(entry.Paths) == 0 {
				continue
			}
			step := newMapNode()
			addNodePair(step, "name", strNode("Restore cache"))
			addNodePair(step, "uses", strNode("actions/cache@v4"))
			with := newMapNode()
			addNodePair(with, "path", strNode(strings.Join(entry.Paths, "\n")))
			addNodePair(with, "key", strNode(c.cacheKey(id, i, entry.Key)))
			addNodePair(step, "with", with)
			steps.Content = append(steps.Content, step)
		}
	}

	if len(job.BeforeScript) > 0 {
		step := newMapNode()
		addNodePair(step, "name", strNode("Before script"))
		addNodePair(step, "run", c.scriptNode(job.BeforeScript))
		steps.Content = append(steps.Content, step)
	}

	run := newMapNode()
	addNodePair(run, "name", strNode("Run script"))
	addNodePair(run, "run", c.scriptNode(job.Script))
	steps.Content = append(steps.Content, run)

	if len(job.AfterScript) > 0 {
		step := newMapNode()
		addNodePair(step, "name", strNode("After script"))
		addNodePair(step, "if", strNode("always()"))
		addNodePair(step, "run", c.scriptNode(job.AfterScript))
		steps.Content = append(steps.Content, step)
	}

	if job.Artifacts != nil && len(job.Artifacts.Paths) > 0 {
		step := newMapNode()
		addNodePair(step, "name", strNode("Upload artifacts"))
		switch job.Artifacts.When {
		case "always":
			addNodePair(step, "if", strNode("always()"))
		case "on_failure":
			addNodePair(step, "if", strNode("failure()"))
		}
		addNodePair(step, "uses", strNode("actions/upload-artifact@v4"))
		with := newMapNode()
		artifactName := job.Artifacts.Name
		if artifactName == "" {
			artifactName = id + "-artifacts"
		}
		addNodePair(with, "name", c.rewrittenStrNode(artifactName))
		addNodePair(with, "path", c.rewrittenStrNode(strings.Join(job.Artifacts.Paths, "\n")))
		addNodePair(step, "with", with)
		steps.Content = append(steps.Content, step)
	}

	return steps
}

func (c *ciConverter) cacheKey(id string, idx int, key *ciCacheKey) string {
	switch {
	case key == nil:
		return fmt.Sprintf("${{ runner.os }}-%s-%d", id, idx)
	case len(key.Files) > 0:
		quoted := make([]string, len(key.Files))
		for i, f := range key.Files {
			quoted[i] = "'" + f + "'"
		}
		return fmt.Sprintf("${{ runner.os }}-%s-${{ hashFiles(%s) }}", id, strings.Join(quoted, ", "))
	default:
		return c.rewriteValue(key.Value)
	}
}

func (c *ciConverter) scriptNode(lines []string) *yaml.Node {
	rewritten := make([]string, len(lines))
	for i, l := range lines {
		rewritten[i] = c.rewriteValue(l)
	}
	return strNode(strings.Join(rewritten, "\n"))
}

func (c *ciConverter) rewrittenStrNode(s string) *yaml.Node {
	return strNode(c.rewriteValue(s))
}

// rewriteValue maps source CI variables to destination expressions and
// rewrites source registry references. Unknown source-reserved
// variables warn once and pass through.
func (c *ciConverter) rewriteValue(s string) string {
	if c.opts.SourceRegistry != "" {
		s = strings.ReplaceAll(s, c.opts.SourceRegistry, c.opts.DestRegistry)
	}
	return ciVarRe.ReplaceAllStringFunc(s, func(m string) string {
		name := ciVarRe.FindStringSubmatch(m)[1]
		switch name {
		case "CI_REGISTRY":
			return c.opts.DestRegistry
		case "CI_REGISTRY_IMAGE":
			return c.opts.DestRegistry + "/${{ github.repository }}"
		}
		if repl, ok := ciVarMap[name]; ok {
			return repl
		}
		if strings.HasPrefix(name, "CI_") || strings.HasPrefix(name, "GITLAB_") {
			if !c.unknownVars[name] {
				c.unknownVars[name] = true
				c.res.warnf("source variable $%s has no destination equivalent; left as-is", name)
			}
		}
		return m
	})
}

func (c *ciConverter) lint(rendered []byte) {
	linter, err := actionlint.NewLinter(io.Discard, &actionlint.LinterOptions{
		// Subprocess-backed rules are dropped so conversion output does
		// not depend on what happens to be installed on the host.
		OnRulesCreated: func(rules []actionlint.Rule) []actionlint.Rule {
			kept := rules[:0]
			for _, r := range rules {
				switch r.Name() {
				case "shellcheck", "pyflakes":
					continue
				}
				kept = append(kept, r)
			}
			return kept
		},
	})
	if err != nil {
		c.res.warnf("actionlint unavailable: %v", err)
		return
	}
	findings, err := linter.Lint("migrated.yml", rendered, nil)
	if err != nil {
		c.res.warnf("actionlint could not check the workflow: %v", err)
		return
	}
	for _, f := range findings {
		c.res.warnf("actionlint: %d:%d: %s", f.Line, f.Column, f.Message)
	}
}

// Source job model. Custom scalar-or-structure fields tolerate the
// shorthand forms the source format allows.

type ciJob struct {
	Stage         string                `yaml:"stage"`
	Image         *ciImage              `yaml:"image"`
	Services      []ciService           `yaml:"services"`
	BeforeScript  multiString           `yaml:"before_script"`
	Script        multiString           `yaml:"script"`
	AfterScript   multiString           `yaml:"after_script"`
	Needs         []ciNeed              `yaml:"needs"`
	Dependencies  []string              `yaml:"dependencies"`
	Tags          []string              `yaml:"tags"`
	Only          *ciOnly               `yaml:"only"`
	Except        *ciOnly               `yaml:"except"`
	Rules         []map[string]any      `yaml:"rules"`
	When          string                `yaml:"when"`
	AllowFailure  *ciAllowFailure       `yaml:"allow_failure"`
	Artifacts     *ciArtifacts          `yaml:"artifacts"`
	Cache         *ciCache              `yaml:"cache"`
	Variables     map[string]flexString `yaml:"variables"`
	Environment   *ciEnvironment        `yaml:"environment"`
	Timeout       string                `yaml:"timeout"`
	Retry         *yaml.Node            `yaml:"retry"`
	Parallel      *yaml.Node            `yaml:"parallel"`
	Trigger       *yaml.Node            `yaml:"trigger"`
	Coverage      string                `yaml:"coverage"`
	ResourceGroup string                `yaml:"resource_group"`
}

// multiString accepts a scalar or a possibly nested list of scalars.
type multiString []string

func (m *multiString) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*m = []string{n.Value}
	case yaml.SequenceNode:
		var out []string
		for _, child := range n.Content {
			var sub multiString
			if err := sub.UnmarshalYAML(child); err != nil {
				return err
			}
			out = append(out, sub...)
		}
		*m = out
	default:
		return fmt.Errorf("line %d: expected string or list", n.Line)
	}
	return nil
}

// flexString accepts a scalar or the {value, description} form.
type flexString string

func (s *flexString) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*s = flexString(n.Value)
		return nil
	}
	var m struct {
		Value string `yaml:"value"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	*s = flexString(m.Value)
	return nil
}

type ciImage struct {
	Name       string
	Entrypoint []string
}

func (i *ciImage) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		i.Name = n.Value
		return nil
	}
	var m struct {
		Name       string   `yaml:"name"`
		Entrypoint []string `yaml:"entrypoint"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	i.Name, i.Entrypoint = m.Name, m.Entrypoint
	return nil
}

type ciService struct {
	Name  string
	Alias string
}

func (s *ciService) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.Name = n.Value
		return nil
	}
	var m struct {
		Name  string `yaml:"name"`
		Alias string `yaml:"alias"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	s.Name, s.Alias = m.Name, m.Alias
	return nil
}

type ciNeed struct {
	Job string
}

func (d *ciNeed) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		d.Job = n.Value
		return nil
	}
	var m struct {
		Job string `yaml:"job"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	d.Job = m.Job
	return nil
}

// ciOnly covers only/except: a ref list or the refs/changes/variables
// mapping form.
type ciOnly struct {
	Refs    []string
	Complex bool
}

func (o *ciOnly) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		return n.Decode(&o.Refs)
	case yaml.MappingNode:
		o.Complex = true
		var m struct {
			Refs []string `yaml:"refs"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		o.Refs = m.Refs
		return nil
	}
	return fmt.Errorf("line %d: expected list or mapping", n.Line)
}

type ciAllowFailure struct {
	Allowed bool
}

func (a *ciAllowFailure) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return n.Decode(&a.Allowed)
	}
	// The exit_codes form allows failure for specific codes.
	a.Allowed = true
	return nil
}

type ciArtifacts struct {
	Name     string      `yaml:"name"`
	Paths    multiString `yaml:"paths"`
	ExpireIn string      `yaml:"expire_in"`
	When     string      `yaml:"when"`
	Reports  *yaml.Node  `yaml:"reports"`
}

type ciCacheEntry struct {
	Key   *ciCacheKey `yaml:"key"`
	Paths multiString `yaml:"paths"`
}

type ciCacheKey struct {
	Value string
	Files []string
}

func (k *ciCacheKey) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		k.Value = n.Value
		return nil
	}
	var m struct {
		Files []string `yaml:"files"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	k.Files = m.Files
	return nil
}

// ciCache accepts a single cache mapping or a list of them.
type ciCache struct {
	Entries []ciCacheEntry
}

func (c *ciCache) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		var e ciCacheEntry
		if err := n.Decode(&e); err != nil {
			return err
		}
		c.Entries = []ciCacheEntry{e}
		return nil
	case yaml.SequenceNode:
		return n.Decode(&c.Entries)
	}
	return fmt.Errorf("line %d: expected mapping or list", n.Line)
}

type ciEnvironment struct {
	Name string
	URL  string
}

func (e *ciEnvironment) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		e.Name = n.Value
		return nil
	}
	var m struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	e.Name, e.URL = m.Name, m.URL
	return nil
}

// Node construction helpers for the rendered workflow tree.

func newMapNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func addNodePair(m *yaml.Node, key string, val *yaml.Node) {
	m.Content = append(m.Content, strNode(key), val)
}

func strNode(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

func intNode(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(i)}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func strSeqNode(items []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, s := range items {
		n.Content = append(n.Content, strNode(s))
	}
	return n
}

// mergeMappingNodes returns a new mapping with override's keys winning
// over base's. The merge is shallow, matching extends resolution where
// a job redefining a key replaces it outright.
func mergeMappingNodes(base, override *yaml.Node) *yaml.Node {
	out := newMapNode()
	index := map[string]int{}
	for i := 0; i+1 < len(base.Content); i += 2 {
		index[base.Content[i].Value] = len(out.Content)
		out.Content = append(out.Content, base.Content[i], base.Content[i+1])
	}
	for i := 0; i+1 < len(override.Content); i += 2 {
		key, val := override.Content[i], override.Content[i+1]
		if at, ok := index[key.Value]; ok {
			out.Content[at+1] = val
			continue
		}
		index[key.Value] = len(out.Content)
		out.Content = append(out.Content, key, val)
	}
	return out
}

var jobIDInvalidRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeJobID(name string) string {
	id := jobIDInvalidRe.ReplaceAllString(name, "-")
	id = strings.Trim(id, "-")
	if id == "" {
		return "job"
	}
	first := id[0]
	if !(first >= 'A' && first <= 'Z' || first >= 'a' && first <= 'z' || first == '_') {
		id = "job-" + id
	}
	return id
}

func serviceKey(image string) string {
	base := image
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, ":"); i >= 0 {
		base = base[:i]
	}
	return sanitizeJobID(base)
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

var ciDurationUnits = []struct{ word, unit string }{
	{"hours", "h"}, {"hour", "h"}, {"hrs", "h"}, {"hr", "h"},
	{"minutes", "m"}, {"minute", "m"}, {"mins", "m"}, {"min", "m"},
	{"seconds", "s"}, {"second", "s"}, {"secs", "s"}, {"sec", "s"},
}

// parseCITimeout parses human duration forms like "90 minutes" or
// "1 hour 30 minutes" into whole minutes, rounding up.
func parseCITimeout(s string) (int, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, u := range ciDurationUnits {
		norm = strings.ReplaceAll(norm, u.word, u.unit)
	}
	norm = strings.ReplaceAll(norm, " ", "")
	d, err := time.ParseDuration(norm)
	if err != nil || d <= 0 {
		return 0, false
	}
	mins := int(math.Ceil(d.Minutes()))
	if mins < 1 {
		mins = 1
	}
	return mins, true
}
