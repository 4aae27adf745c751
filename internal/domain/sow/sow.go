// Package sow aggregates an inventory into the metrics and tables of a
// statement-of-work document. Aggregation and rendering are
// deterministic; narrative sections may be supplied by a model and
// fall back to generated text when they are not.
package sow

import (
	"sort"
	"time"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

// Narrative section identifiers. A synthesizer maps model-generated
// prose onto these; Render fills any missing section itself.
const (
	SectionExecutiveSummary  = "executive_summary"
	SectionRiskAssessment    = "risk_assessment"
	SectionMigrationApproach = "migration_approach"
)

// DefaultChunkSize bounds how many project rows go into one model
// prompt.
const DefaultChunkSize = 40

// BlockerCount is one distinct blocker with the number of projects
// carrying it.
type BlockerCount struct {
	Text  string
	Count int
}

// ProjectRow is the per-project line of the SOW inventory table.
type ProjectRow struct {
	Path       string
	Complexity string
	Archived   bool
	Bucket     string
	HoursLow   float64
	HoursHigh  float64
	Blockers   int
}

// Metrics is everything the SOW document derives from one inventory.
type Metrics struct {
	BaseURL   string
	StartedAt time.Time

	Projects  int
	Groups    int
	Archived  int
	WithCI    int
	WithLFS   int
	Estimated int

	HoursLow  float64
	HoursHigh float64
	Buckets   map[string]int

	Blockers []BlockerCount
	Rows     []ProjectRow
}

// Aggregate computes SOW metrics from an inventory. The output is
// stable: rows sort by project path, blockers by count then text.
func Aggregate(inv *inventory.Inventory) *Metrics {
	m := &Metrics{
		BaseURL:   inv.Run.BaseURL,
		StartedAt: inv.Run.StartedAt,
		Projects:  len(inv.Projects),
		Groups:    len(inv.Groups),
		Buckets:   map[string]int{},
	}

	blockers := map[string]int{}
	for i := range inv.Projects {
		p := &inv.Projects[i]
		row := ProjectRow{
			Path:       p.PathWithNamespace,
			Complexity: string(p.Readiness.Complexity),
			Archived:   p.Archived,
			Blockers:   len(p.Readiness.Blockers),
		}
		if p.Archived {
			m.Archived++
		}
		if p.Facts.HasCI.IsTrue() {
			m.WithCI++
		}
		if p.Facts.HasLFS.IsTrue() {
			m.WithLFS++
		}
		for _, b := range p.Readiness.Blockers {
			blockers[b]++
		}
		if est := p.Estimate; est != nil {
			m.Estimated++
			m.HoursLow += est.HoursLow
			m.HoursHigh += est.HoursHigh
			m.Buckets[est.Bucket]++
			row.Bucket = est.Bucket
			row.HoursLow = est.HoursLow
			row.HoursHigh = est.HoursHigh
		}
		m.Rows = append(m.Rows, row)
	}

	for text, count := range blockers {
		m.Blockers = append(m.Blockers, BlockerCount{Text: text, Count: count})
	}
	sort.Slice(m.Blockers, func(i, j int) bool {
		if m.Blockers[i].Count != m.Blockers[j].Count {
			return m.Blockers[i].Count > m.Blockers[j].Count
		}
		return m.Blockers[i].Text < m.Blockers[j].Text
	})
	sort.Slice(m.Rows, func(i, j int) bool { return m.Rows[i].Path < m.Rows[j].Path })
	return m
}

// ChunkRows splits the rows into batches of at most size, preserving
// order. A size below one falls back to DefaultChunkSize.
func ChunkRows(rows []ProjectRow, size int) [][]ProjectRow {
	if size < 1 {
		size = DefaultChunkSize
	}
	var chunks [][]ProjectRow
	for len(rows) > size {
		chunks = append(chunks, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		chunks = append(chunks, rows)
	}
	return chunks
}
