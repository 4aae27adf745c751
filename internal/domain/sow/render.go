package sow

import (
	"fmt"
	"strings"
)

// Render formats the SOW as Markdown. Sections listed in narratives
// use that prose; missing sections get deterministic generated text,
// so the document is complete with or without a model.
func Render(m *Metrics, narratives map[string]string) string {
	var b strings.Builder

	b.WriteString("# Statement of Work: Forge Migration\n\n")
	fmt.Fprintf(&b, "Source: %s\n\n", m.BaseURL)
	if !m.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Inventory taken: %s\n\n", m.StartedAt.UTC().Format("2006-01-02"))
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(section(narratives, SectionExecutiveSummary, m.executiveSummary()))

	b.WriteString("## Scope\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Projects | %d |\n", m.Projects)
	fmt.Fprintf(&b, "| Groups | %d |\n", m.Groups)
	fmt.Fprintf(&b, "| Archived projects | %d |\n", m.Archived)
	fmt.Fprintf(&b, "| Projects with CI | %d |\n", m.WithCI)
	fmt.Fprintf(&b, "| Projects with LFS | %d |\n", m.WithLFS)
	b.WriteString("\n")

	if m.Estimated > 0 {
		b.WriteString("## Effort\n\n")
		b.WriteString("| Bucket | Projects |\n|---|---|\n")
		for _, bucket := range []string{"S", "M", "L", "XL"} {
			if n := m.Buckets[bucket]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", bucket, n)
			}
		}
		fmt.Fprintf(&b, "\nTotal estimated effort: %s to %s hours across %d estimated projects.\n\n",
			hours(m.HoursLow), hours(m.HoursHigh), m.Estimated)
	}

	b.WriteString("## Migration Approach\n\n")
	b.WriteString(section(narratives, SectionMigrationApproach, m.migrationApproach()))

	b.WriteString("## Risk Assessment\n\n")
	b.WriteString(section(narratives, SectionRiskAssessment, m.riskAssessment()))
	if len(m.Blockers) > 0 {
		b.WriteString("Blockers by frequency:\n\n")
		for _, bl := range m.Blockers {
			fmt.Fprintf(&b, "- %s (%d)\n", bl.Text, bl.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Project Inventory\n\n")
	b.WriteString("| Project | Complexity | Bucket | Hours | Blockers |\n|---|---|---|---|---|\n")
	for _, row := range m.Rows {
		bucket := row.Bucket
		hoursCell := "n/a"
		if bucket == "" {
			bucket = "n/a"
		} else {
			hoursCell = hours(row.HoursLow) + " to " + hours(row.HoursHigh)
		}
		path := row.Path
		if row.Archived {
			path += " (archived)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n",
			path, row.Complexity, bucket, hoursCell, row.Blockers)
	}
	b.WriteString("\n")
	return b.String()
}

func section(narratives map[string]string, id, fallback string) string {
	text := strings.TrimSpace(narratives[id])
	if text == "" {
		text = fallback
	}
	return text + "\n\n"
}

func (m *Metrics) executiveSummary() string {
	return fmt.Sprintf(
		"This migration covers %d projects across %d groups on %s. "+
			"%d projects carry CI configuration that must be converted and %d use Git LFS. "+
			"%d projects are archived and migrate as read-only history.",
		m.Projects, m.Groups, m.BaseURL, m.WithCI, m.WithLFS, m.Archived)
}

func (m *Metrics) migrationApproach() string {
	return "Each project is exported to an artifact tree, transformed, and replayed " +
		"against the destination as an ordered action plan. Repositories move first, " +
		"then CI configuration, issues, merge requests, wiki, releases, and settings. " +
		"Every run is resumable and supports a dry-run pass."
}

func (m *Metrics) riskAssessment() string {
	if len(m.Blockers) == 0 {
		return "No blocking findings were recorded during discovery."
	}
	return fmt.Sprintf(
		"Discovery recorded %d distinct blocking findings. The most frequent is %q, "+
			"affecting %d projects. Items below require resolution before or during the migration.",
		len(m.Blockers), m.Blockers[0].Text, m.Blockers[0].Count)
}

func hours(h float64) string {
	if h == float64(int64(h)) {
		return fmt.Sprintf("%d", int64(h))
	}
	return fmt.Sprintf("%.1f", h)
}
