package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
	"github.com/Strob0t/ForgeShift/internal/domain/sow"
	"github.com/Strob0t/ForgeShift/internal/port/llm"
)

const sowNarrativeSystemPrompt = `You are writing sections of a statement of work for a
forge migration. Answer with plain Markdown prose for the requested
section only: no heading, no code fences, no preamble. Base every claim
strictly on the figures provided.`

// SOWOptions configures statement-of-work synthesis.
type SOWOptions struct {
	// Model supplies narrative prose. Nil produces a fully
	// deterministic document.
	Model llm.Client

	// ChunkSize bounds the number of project rows summarized per model
	// prompt; zero uses sow.DefaultChunkSize.
	ChunkSize int

	Logger *slog.Logger
}

// Synthesizer turns an enriched inventory into a SOW document.
type Synthesizer struct {
	opts SOWOptions
	log  *slog.Logger
}

// NewSynthesizer builds a SOW synthesizer.
func NewSynthesizer(opts SOWOptions) *Synthesizer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{opts: opts, log: log.With("service", "sow")}
}

// Synthesize aggregates the inventory and renders the document. With a
// model configured, the executive summary, risk assessment, and
// migration approach sections are drafted from the aggregated figures;
// any section the model fails to produce falls back to generated text,
// so synthesis itself never fails on model errors.
func (s *Synthesizer) Synthesize(ctx context.Context, inv *inventory.Inventory) (string, error) {
	if inv == nil {
		return "", fmt.Errorf("nil inventory")
	}
	m := sow.Aggregate(inv)
	narratives := s.narratives(ctx, m)
	return sow.Render(m, narratives), nil
}

func (s *Synthesizer) narratives(ctx context.Context, m *sow.Metrics) map[string]string {
	if s.opts.Model == nil {
		return nil
	}

	digest := s.digest(m)
	out := map[string]string{}
	sections := []struct {
		id     string
		prompt string
	}{
		{sow.SectionExecutiveSummary,
			"Write a two-paragraph executive summary of this migration engagement."},
		{sow.SectionRiskAssessment,
			"Write a risk assessment covering the blockers and their project counts."},
		{sow.SectionMigrationApproach,
			"Describe the phased migration approach implied by the effort buckets."},
	}

	for _, sec := range sections {
		answer, err := s.opts.Model.Complete(ctx, llm.Request{
			System:      sowNarrativeSystemPrompt,
			Prompt:      sec.prompt + "\n\n" + digest,
			MaxTokens:   800,
			Temperature: 0.3,
		})
		if err != nil {
			s.log.Warn("narrative generation failed; using generated text",
				"section", sec.id, "error", err)
			continue
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}
		out[sec.id] = answer
	}
	return out
}

// digest renders the aggregated figures as prompt context. Project
// rows are chunked and only the first chunk is inlined; the totals
// already cover the rest, and an unbounded table would blow the prompt
// on large estates.
func (s *Synthesizer) digest(m *sow.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source forge: %s\n", m.BaseURL)
	fmt.Fprintf(&b, "Projects: %d (%d archived), groups: %d\n", m.Projects, m.Archived, m.Groups)
	fmt.Fprintf(&b, "Projects with CI: %d, with LFS: %d\n", m.WithCI, m.WithLFS)
	if m.Estimated > 0 {
		fmt.Fprintf(&b, "Estimated effort: %.0f-%.0f hours over %d projects\n",
			m.HoursLow, m.HoursHigh, m.Estimated)
		for _, bucket := range []string{"S", "M", "L", "XL"} {
			if n := m.Buckets[bucket]; n > 0 {
				fmt.Fprintf(&b, "  bucket %s: %d projects\n", bucket, n)
			}
		}
	}
	if len(m.Blockers) > 0 {
		b.WriteString("Top blockers:\n")
		for i, blocker := range m.Blockers {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "  %dx %s\n", blocker.Count, blocker.Text)
		}
	}

	chunks := sow.ChunkRows(m.Rows, s.opts.ChunkSize)
	if len(chunks) > 0 {
		fmt.Fprintf(&b, "Sample projects (%d of %d):\n", len(chunks[0]), len(m.Rows))
		for _, row := range chunks[0] {
			fmt.Fprintf(&b, "  %s complexity=%s bucket=%s blockers=%d\n",
				row.Path, row.Complexity, row.Bucket, row.Blockers)
		}
	}
	return b.String()
}
