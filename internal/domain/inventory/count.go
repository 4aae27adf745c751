package inventory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const unknownToken = "unknown"

// Tristate is a boolean fact that may be unknown, e.g. after a 403 on
// the probe endpoint. It marshals as true, false or "unknown".
type Tristate struct {
	Known bool
	Value bool
}

// True, False and Unknown build the three Tristate states.
func True() Tristate    { return Tristate{Known: true, Value: true} }
func False() Tristate   { return Tristate{Known: true, Value: false} }
func Unknown() Tristate { return Tristate{} }

// IsTrue reports whether the fact is known and set.
func (t Tristate) IsTrue() bool { return t.Known && t.Value }

func (t Tristate) MarshalJSON() ([]byte, error) {
	if !t.Known {
		return json.Marshal(unknownToken)
	}
	return json.Marshal(t.Value)
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		t.Known, t.Value = true, b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s == unknownToken {
		*t = Tristate{}
		return nil
	}
	return fmt.Errorf("tristate: want bool or %q, got %s", unknownToken, data)
}

// Count is an item total. It is exact, capped when enumeration hit a
// ceiling (marshaled ">N"), or unknown.
type Count struct {
	N       int
	Capped  bool
	Unknown bool
}

// ExactCount returns an exact total.
func ExactCount(n int) Count { return Count{N: n} }

// CappedCount returns a total truncated at n by a light-mode ceiling.
func CappedCount(n int) Count { return Count{N: n, Capped: true} }

// UnknownCount returns a total that could not be determined.
func UnknownCount() Count { return Count{Unknown: true} }

// Approx returns a usable number for scoring: the exact value, the cap
// for capped counts, and zero for unknown ones.
func (c Count) Approx() int {
	if c.Unknown {
		return 0
	}
	return c.N
}

func (c Count) MarshalJSON() ([]byte, error) {
	switch {
	case c.Unknown:
		return json.Marshal(unknownToken)
	case c.Capped:
		return json.Marshal(">" + strconv.Itoa(c.N))
	default:
		return json.Marshal(c.N)
	}
}

func (c *Count) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Count{N: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("count: want integer or string, got %s", data)
	}
	if s == unknownToken {
		*c = Count{Unknown: true}
		return nil
	}
	if rest, ok := strings.CutPrefix(s, ">"); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n >= 0 {
			*c = Count{N: n, Capped: true}
			return nil
		}
	}
	return fmt.Errorf("count: unrecognized value %q", s)
}

// MRCounts holds merge request totals per state, or the literal
// "unknown" token when the fact could not be gathered.
type MRCounts struct {
	Unknown bool  `json:"-"`
	Opened  Count `json:"opened"`
	Merged  Count `json:"merged"`
	Closed  Count `json:"closed"`
}

// Total sums the per-state counts for scoring purposes.
func (c MRCounts) Total() int {
	if c.Unknown {
		return 0
	}
	return c.Opened.Approx() + c.Merged.Approx() + c.Closed.Approx()
}

func (c MRCounts) MarshalJSON() ([]byte, error) {
	if c.Unknown {
		return json.Marshal(unknownToken)
	}
	type alias MRCounts
	return json.Marshal(alias(c))
}

func (c *MRCounts) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unknownToken {
			return fmt.Errorf("mr_counts: unrecognized value %q", s)
		}
		*c = MRCounts{Unknown: true}
		return nil
	}
	type alias MRCounts
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = MRCounts(a)
	return nil
}

// IssueCounts holds issue totals per state, or the literal "unknown"
// token when the fact could not be gathered.
type IssueCounts struct {
	Unknown bool  `json:"-"`
	Opened  Count `json:"opened"`
	Closed  Count `json:"closed"`
}

// Total sums the per-state counts for scoring purposes.
func (c IssueCounts) Total() int {
	if c.Unknown {
		return 0
	}
	return c.Opened.Approx() + c.Closed.Approx()
}

func (c IssueCounts) MarshalJSON() ([]byte, error) {
	if c.Unknown {
		return json.Marshal(unknownToken)
	}
	type alias IssueCounts
	return json.Marshal(alias(c))
}

func (c *IssueCounts) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unknownToken {
			return fmt.Errorf("issue_counts: unrecognized value %q", s)
		}
		*c = IssueCounts{Unknown: true}
		return nil
	}
	type alias IssueCounts
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = IssueCounts(a)
	return nil
}
