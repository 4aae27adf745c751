package estimate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Strob0t/ForgeShift/internal/domain/inventory"
)

// ModelEstimate is the fixed shape a model answer must follow. Any
// deviation makes the caller fall back to the rule-based estimate.
type ModelEstimate struct {
	HoursLow  float64 `json:"hours_low"`
	HoursHigh float64 `json:"hours_high"`
	Risk      string  `json:"risk"`
	Breakdown struct {
		Code   inventory.HoursRange `json:"code"`
		MRs    inventory.HoursRange `json:"mrs"`
		Issues inventory.HoursRange `json:"issues"`
		CI     inventory.HoursRange `json:"ci"`
	} `json:"breakdown"`
	CriticalNotes []string `json:"critical_notes"`
	Supported     []string `json:"supported"`
	NotSupported  []string `json:"not_supported"`
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

// ParseModelEstimate extracts and decodes a model answer. Models wrap
// JSON in prose or fenced blocks more often than not, so extraction is
// defensive: a fenced block first, then the first balanced JSON object
// in the text.
func ParseModelEstimate(raw string) (*ModelEstimate, error) {
	candidate := ""
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if candidate == "" {
		candidate = firstJSONObject(raw)
	}
	if candidate == "" {
		return nil, fmt.Errorf("no JSON object in model answer")
	}

	var est ModelEstimate
	if err := json.Unmarshal([]byte(candidate), &est); err != nil {
		return nil, fmt.Errorf("decode model answer: %w", err)
	}
	if est.HoursLow < 0 || est.HoursHigh < 0 {
		return nil, fmt.Errorf("model answer has negative hours")
	}
	if est.HoursLow == 0 && est.HoursHigh == 0 {
		return nil, fmt.Errorf("model answer carries no estimate")
	}
	return &est, nil
}

// firstJSONObject returns the first balanced {...} span, tracking
// string literals so braces inside them do not affect the depth.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// Apply overlays a parsed model answer onto a rule-based estimate,
// clamping so hours_low never exceeds hours_high and the breakdown
// sums match the top level.
func (m *ModelEstimate) Apply(base *inventory.Estimate) *inventory.Estimate {
	est := *base
	est.HoursLow = m.HoursLow
	est.HoursHigh = m.HoursHigh
	if est.HoursLow > est.HoursHigh {
		est.HoursLow, est.HoursHigh = est.HoursHigh, est.HoursLow
	}

	switch strings.ToLower(m.Risk) {
	case "low":
		est.Confidence = inventory.ConfidenceHigh
	case "medium":
		est.Confidence = inventory.ConfidenceMedium
	case "high":
		est.Confidence = inventory.ConfidenceLow
	}

	b := &inventory.Breakdown{
		Code:   m.Breakdown.Code,
		MRs:    m.Breakdown.MRs,
		Issues: m.Breakdown.Issues,
		CI:     m.Breakdown.CI,
	}
	clampRange := func(r *inventory.HoursRange) {
		if r.HoursLow < 0 {
			r.HoursLow = 0
		}
		if r.HoursHigh < r.HoursLow {
			r.HoursHigh = r.HoursLow
		}
	}
	clampRange(&b.Code)
	clampRange(&b.MRs)
	clampRange(&b.Issues)
	clampRange(&b.CI)

	sumLow := b.Code.HoursLow + b.MRs.HoursLow + b.Issues.HoursLow + b.CI.HoursLow
	sumHigh := b.Code.HoursHigh + b.MRs.HoursHigh + b.Issues.HoursHigh + b.CI.HoursHigh
	if sumLow <= 0 && sumHigh <= 0 {
		est.Breakdown = splitBreakdown(est.HoursLow, est.HoursHigh)
	} else {
		scaleLow := 1.0
		if sumLow > 0 {
			scaleLow = est.HoursLow / sumLow
		}
		scaleHigh := 1.0
		if sumHigh > 0 {
			scaleHigh = est.HoursHigh / sumHigh
		}
		for _, r := range []*inventory.HoursRange{&b.Code, &b.MRs, &b.Issues} {
			r.HoursLow *= scaleLow
			r.HoursHigh *= scaleHigh
		}
		// The last area takes the residual so the sums are exact.
		b.CI.HoursLow = est.HoursLow - b.Code.HoursLow - b.MRs.HoursLow - b.Issues.HoursLow
		b.CI.HoursHigh = est.HoursHigh - b.Code.HoursHigh - b.MRs.HoursHigh - b.Issues.HoursHigh
		if b.CI.HoursLow < 0 {
			b.CI.HoursLow = 0
		}
		if b.CI.HoursHigh < 0 {
			b.CI.HoursHigh = 0
		}
		est.Breakdown = b
	}

	if len(m.CriticalNotes) > 0 {
		est.CriticalNotes = m.CriticalNotes
	}
	est.ScopeFlags = inventory.ScopeFlags{
		Supported:    capList(mergeNonEmpty(m.Supported, base.ScopeFlags.Supported), 5),
		NotSupported: capList(mergeNonEmpty(m.NotSupported, base.ScopeFlags.NotSupported), 5),
	}
	return &est
}

// mergeNonEmpty prefers the model's list, keeping the rule-based one
// when the model returned nothing.
func mergeNonEmpty(model, fallback []string) []string {
	if len(model) > 0 {
		return model
	}
	return fallback
}
