// Package estimate holds the deterministic effort machinery of deep
// analysis: the CI configuration profiler, the risk ranking that picks
// which projects to analyze, the rule-based work scoring, and the
// defensive parser for model-produced estimates.
package estimate

import (
	"regexp"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

// reservedTopLevel are CI keys that configure the pipeline rather than
// define a job, so they are excluded from the job count.
var reservedTopLevel = map[string]bool{
	"default":       true,
	"include":       true,
	"stages":        true,
	"variables":     true,
	"workflow":      true,
	"before_script": true,
	"after_script":  true,
	"image":         true,
	"services":      true,
	"cache":         true,
	"pages":         true,
	".pre":          true,
	".post":         true,
}

// sharedRunnerTags are tag values that commonly select hosted runners;
// anything outside this set hints at self-hosted infrastructure.
var sharedRunnerTags = map[string]bool{
	"docker":  true,
	"linux":   true,
	"windows": true,
	"macos":   true,
	"shared":  true,
	"gitlab-org":               true,
	"saas-linux-small-amd64":   true,
	"saas-linux-medium-amd64":  true,
	"saas-linux-large-amd64":   true,
	"saas-windows-medium-amd64": true,
}

var (
	topLevelKeyRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+):\s*(.*)$`)
	keyRe         = regexp.MustCompile(`^\s*([A-Za-z0-9_.-]+):\s*(.*)$`)
	dindRe        = regexp.MustCompile(`docker:[0-9.]*-?dind`)
	privilegedRe  = regexp.MustCompile(`privileged["']?\s*[:=]\s*["']?true`)
	whenManualRe  = regexp.MustCompile(`^\s*when:\s*["']?manual["']?\s*$`)
	listItemRe    = regexp.MustCompile(`^\s*-\s*(.+?)\s*$`)
)

// ParseCIProfile scans CI configuration text line by line and returns
// the feature profile. It is a tolerant scanner, not a YAML parser:
// malformed documents still yield a profile, and every flag is
// conservative-by-overcount because the output is advisory.
func ParseCIProfile(content string) *inventory.CIProfile {
	profile := &inventory.CIProfile{}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	inTags := false
	var tagValues []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if inTags {
			if m := listItemRe.FindStringSubmatch(line); m != nil {
				tagValues = append(tagValues, cleanScalar(m[1]))
				continue
			}
			inTags = false
		}

		if m := keyRe.FindStringSubmatch(line); m != nil {
			key, value := m[1], m[2]
			switch key {
			case "include":
				profile.Features.Include = true
			case "services":
				profile.Features.Services = true
			case "artifacts":
				profile.Features.Artifacts = true
			case "cache":
				profile.Features.Cache = true
			case "rules":
				profile.Features.Rules = true
			case "needs":
				profile.Features.Needs = true
			case "parallel":
				profile.Features.Parallel = true
			case "trigger":
				profile.Features.Trigger = true
			case "environment":
				profile.Features.Environments = true
			case "variables":
				profile.Features.Variables = true
			case "extends":
				profile.Features.Extends = true
			case "matrix":
				profile.Features.Matrix = true
			case "tags":
				profile.RunnerHints.UsesTags = true
				if inline := parseInlineList(value); len(inline) > 0 {
					tagValues = append(tagValues, inline...)
				} else if value == "" {
					inTags = true
				}
			}
		}
		if whenManualRe.MatchString(line) {
			profile.Features.ManualJobs = true
		}
		if dindRe.MatchString(line) {
			profile.RunnerHints.DockerInDocker = true
		}
		if privilegedRe.MatchString(line) {
			profile.RunnerHints.Privileged = true
		}

		if m := topLevelKeyRe.FindStringSubmatch(line); m != nil {
			key := m[1]
			if !reservedTopLevel[key] && !strings.HasPrefix(key, ".") {
				profile.JobsCount++
			}
		}
	}

	for _, tag := range tagValues {
		if !sharedRunnerTags[strings.ToLower(tag)] {
			profile.RunnerHints.PossibleSelfHosted = true
			break
		}
	}
	if profile.RunnerHints.Privileged {
		profile.RunnerHints.PossibleSelfHosted = true
	}
	return profile
}

// parseInlineList splits a flow-style list like "[self-hosted, linux]".
func parseInlineList(value string) []string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return nil
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	var out []string
	for _, part := range strings.Split(inner, ",") {
		if v := cleanScalar(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cleanScalar(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return s
}
