package transform

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// Fuzzy-match floors. Below these a candidate is not a match at all;
// the unmapped list is the operator's surface for the rest.
const (
	usernameFuzzyFloor = 0.75
	nameFuzzyFloor     = 0.85
)

// DestUser is a destination-forge account considered for matching.
type DestUser struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UserMatch records how one source user was resolved.
type UserMatch struct {
	Source     string  `json:"source"`
	Dest       string  `json:"dest"`
	Confidence string  `json:"confidence"` // high, medium, low
	Method     string  `json:"method"`     // email, username, username_fuzzy, name, name_fuzzy
	Score      float64 `json:"score,omitempty"`
}

// UserMapping is the output of the Users transformer.
type UserMapping struct {
	Matches  []UserMatch `json:"matches"`
	Unmapped []string    `json:"unmapped"`
}

// ToMap returns the source-username to destination-login map used by
// the content transformer.
func (m UserMapping) ToMap() map[string]string {
	out := make(map[string]string, len(m.Matches))
	for _, match := range m.Matches {
		out[match.Source] = match.Dest
	}
	return out
}

// Users matches source accounts to destination accounts. Matching
// cascades per user: exact email, then exact username, then fuzzy
// username, then exact display name, then fuzzy display name. Each
// rung carries a lower confidence than the one before it.
func Users(src []source.User, dst []DestUser) Result {
	res := newResult()

	byEmail := make(map[string]string, len(dst))
	byLogin := make(map[string]string, len(dst))
	byName := make(map[string]string, len(dst))
	for _, d := range dst {
		if d.Email != "" {
			byEmail[strings.ToLower(d.Email)] = d.Login
		}
		byLogin[strings.ToLower(d.Login)] = d.Login
		if d.Name != "" {
			byName[strings.ToLower(d.Name)] = d.Login
		}
	}

	mapping := UserMapping{Matches: []UserMatch{}, Unmapped: []string{}}
	for _, s := range src {
		match, ok := matchUser(s, dst, byEmail, byLogin, byName)
		if !ok {
			mapping.Unmapped = append(mapping.Unmapped, s.Username)
			continue
		}
		mapping.Matches = append(mapping.Matches, match)
	}
	sort.Strings(mapping.Unmapped)

	if len(mapping.Unmapped) > 0 {
		res.warnf("%d source users could not be matched to a destination account", len(mapping.Unmapped))
	}

	counts := map[string]int{}
	for _, m := range mapping.Matches {
		counts[m.Confidence]++
	}
	res.Data = mapping
	res.Metadata["matched"] = len(mapping.Matches)
	res.Metadata["unmapped"] = len(mapping.Unmapped)
	res.Metadata["confidence_counts"] = counts
	return res
}

func matchUser(s source.User, dst []DestUser, byEmail, byLogin, byName map[string]string) (UserMatch, bool) {
	if s.Email != "" {
		if login, ok := byEmail[strings.ToLower(s.Email)]; ok {
			return UserMatch{Source: s.Username, Dest: login, Confidence: "high", Method: "email", Score: 1}, true
		}
	}

	if login, ok := byLogin[strings.ToLower(s.Username)]; ok {
		return UserMatch{Source: s.Username, Dest: login, Confidence: "high", Method: "username", Score: 1}, true
	}
	if login, score := bestFuzzy(s.Username, dst, func(d DestUser) string { return d.Login }); score >= usernameFuzzyFloor {
		return UserMatch{Source: s.Username, Dest: login, Confidence: "medium", Method: "username_fuzzy", Score: score}, true
	}

	if s.Name != "" {
		if login, ok := byName[strings.ToLower(s.Name)]; ok {
			return UserMatch{Source: s.Username, Dest: login, Confidence: "medium", Method: "name", Score: 1}, true
		}
		if login, score := bestFuzzy(s.Name, dst, func(d DestUser) string { return d.Name }); score >= nameFuzzyFloor {
			return UserMatch{Source: s.Username, Dest: login, Confidence: "low", Method: "name_fuzzy", Score: score}, true
		}
	}

	return UserMatch{}, false
}

// bestFuzzy returns the destination login with the highest similarity
// to want over the chosen field. Ties keep the first candidate so the
// result is stable for a given destination order.
func bestFuzzy(want string, dst []DestUser, field func(DestUser) string) (string, float64) {
	var bestLogin string
	var bestScore float64
	lowWant := strings.ToLower(want)
	for _, d := range dst {
		f := field(d)
		if f == "" {
			continue
		}
		score := levenshtein.Similarity(lowWant, strings.ToLower(f), nil)
		if score > bestScore {
			bestScore = score
			bestLogin = d.Login
		}
	}
	return bestLogin, bestScore
}
