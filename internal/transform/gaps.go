package transform

import (
	"fmt"
	"sort"
	"strings"
)

// Gap severities, ordered most urgent first in reports.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// Gap is one thing the migration could not carry over automatically.
type Gap struct {
	Severity  string `json:"severity"`
	Type      string `json:"type"`
	Construct string `json:"construct,omitempty"`
	Detail    string `json:"detail"`
	Action    string `json:"action,omitempty"`
}

// CollectGaps aggregates the outcomes of the other transformations
// into one classified gap list. Errors become critical gaps, warnings
// become warning gaps, and CI conversion gaps keep their suggested
// actions. Results supplying a metadata "gaps" slice pass through with
// their own severities.
func CollectGaps(results map[string]Result) Result {
	res := newResult()

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	gaps := []Gap{}
	for _, name := range names {
		r := results[name]
		for _, e := range r.Errors {
			gaps = append(gaps, Gap{Severity: SeverityCritical, Type: name, Detail: e})
		}
		for _, w := range r.Warnings {
			gaps = append(gaps, Gap{Severity: SeverityWarning, Type: name, Detail: w})
		}
		if cgs, ok := r.Metadata["conversion_gaps"].([]ConversionGap); ok {
			for _, cg := range cgs {
				gaps = append(gaps, Gap{
					Severity:  SeverityWarning,
					Type:      name,
					Construct: cg.Construct,
					Detail:    cg.Location,
					Action:    cg.Suggested,
				})
			}
		}
		if extra, ok := r.Metadata["gaps"].([]Gap); ok {
			gaps = append(gaps, extra...)
		}
	}

	sortGaps(gaps)

	counts := map[string]int{}
	for _, g := range gaps {
		counts[g.Severity]++
	}

	res.Data = gaps
	res.Metadata["critical"] = counts[SeverityCritical]
	res.Metadata["warning"] = counts[SeverityWarning]
	res.Metadata["info"] = counts[SeverityInfo]
	return res
}

func sortGaps(gaps []Gap) {
	sort.SliceStable(gaps, func(i, j int) bool {
		if severityRank[gaps[i].Severity] != severityRank[gaps[j].Severity] {
			return severityRank[gaps[i].Severity] < severityRank[gaps[j].Severity]
		}
		if gaps[i].Type != gaps[j].Type {
			return gaps[i].Type < gaps[j].Type
		}
		return gaps[i].Construct < gaps[j].Construct
	})
}

// GapReport renders the gap list as a Markdown document for operators,
// most urgent first, ending with the ordered follow-up list.
func GapReport(gaps []Gap) string {
	var sb strings.Builder
	sb.WriteString("# Migration Gap Report\n\n")

	if len(gaps) == 0 {
		sb.WriteString("No gaps detected. Every construct was converted automatically.\n")
		return sb.String()
	}

	sorted := make([]Gap, len(gaps))
	copy(sorted, gaps)
	sortGaps(sorted)

	counts := map[string]int{}
	for _, g := range sorted {
		counts[g.Severity]++
	}
	fmt.Fprintf(&sb, "%d critical, %d warning, %d info\n\n",
		counts[SeverityCritical], counts[SeverityWarning], counts[SeverityInfo])

	sections := []struct {
		severity string
		heading  string
	}{
		{SeverityCritical, "Critical"},
		{SeverityWarning, "Warnings"},
		{SeverityInfo, "Info"},
	}
	for _, sec := range sections {
		if counts[sec.severity] == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", sec.heading)
		for _, g := range sorted {
			if g.Severity != sec.severity {
				continue
			}
			if g.Construct != "" {
				fmt.Fprintf(&sb, "- **%s** `%s`: %s\n", g.Type, g.Construct, g.Detail)
			} else {
				fmt.Fprintf(&sb, "- **%s** %s\n", g.Type, g.Detail)
			}
		}
		sb.WriteString("\n")
	}

	var actions []string
	seen := map[string]bool{}
	for _, g := range sorted {
		if g.Action == "" || seen[g.Action] {
			continue
		}
		seen[g.Action] = true
		actions = append(actions, g.Action)
	}
	if len(actions) > 0 {
		sb.WriteString("## Action List\n\n")
		for i, a := range actions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, a)
		}
	}

	return sb.String()
}
