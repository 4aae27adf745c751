package transform

import (
	"bufio"
	"net/url"
	"regexp"
	"strings"
)

// URL styles recognized in .gitmodules entries.
const (
	StyleSSH      = "ssh"      // git@host:group/repo.git
	StyleSSHURL   = "ssh_url"  // ssh://git@host/group/repo.git
	StyleHTTPS    = "https"    // https://host/group/repo.git
	StyleHTTP     = "http"     // http://host/group/repo.git
	StyleGit      = "git"      // git://host/group/repo.git
	StyleRelative = "relative" // ../group/repo.git
	StyleOther    = "other"
)

// Submodule is one parsed .gitmodules entry.
type Submodule struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
	Style  string `json:"style"`
}

// SubmoduleOptions configures URL rewriting. Mapping keys and values
// are normalized prefixes (host/group, no protocol, no auth, no .git).
type SubmoduleOptions struct {
	Mapping map[string]string
}

var (
	sectionRe = regexp.MustCompile(`^\s*\[submodule\s+"(.+)"\]\s*$`)
	kvRe      = regexp.MustCompile(`^\s*(\w+)\s*=\s*(.+?)\s*$`)
	urlLineRe = regexp.MustCompile(`^(\s*url\s*=\s*)(.+?)(\s*)$`)
	scpLikeRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)@([A-Za-z0-9._-]+):(.+)$`)
)

// ParseGitmodules reads .gitmodules content into submodule entries.
// Lines that fit no known shape are ignored, matching git's tolerance.
func ParseGitmodules(content string) []Submodule {
	var mods []Submodule
	var cur *Submodule

	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := sc.Text()
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			if cur != nil {
				mods = append(mods, *cur)
			}
			cur = &Submodule{Name: m[1]}
			continue
		}
		if cur == nil {
			continue
		}
		if m := kvRe.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "path":
				cur.Path = m[2]
			case "url":
				cur.URL = m[2]
				_, cur.Style = NormalizeRepoURL(m[2])
			case "branch":
				cur.Branch = m[2]
			}
		}
	}
	if cur != nil {
		mods = append(mods, *cur)
	}
	return mods
}

// NormalizeRepoURL reduces a repository URL to host/path form with
// protocol, credentials and the .git suffix stripped, and reports the
// detected style. Relative URLs normalize to their cleaned path.
func NormalizeRepoURL(raw string) (string, string) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") {
		return strings.TrimSuffix(raw, ".git"), StyleRelative
	}

	for prefix, style := range map[string]string{
		"https://": StyleHTTPS,
		"http://":  StyleHTTP,
		"ssh://":   StyleSSHURL,
		"git://":   StyleGit,
	} {
		if strings.HasPrefix(raw, prefix) {
			u, err := url.Parse(raw)
			if err != nil {
				return raw, StyleOther
			}
			path := strings.TrimPrefix(u.Path, "/")
			return u.Host + "/" + strings.TrimSuffix(path, ".git"), style
		}
	}

	if m := scpLikeRe.FindStringSubmatch(raw); m != nil {
		return m[2] + "/" + strings.TrimSuffix(m[3], ".git"), StyleSSH
	}

	return raw, StyleOther
}

// Submodules rewrites submodule URLs in .gitmodules content according
// to the options mapping, preserving each URL's original style and the
// byte layout of every other line. Entries whose repository is not
// covered by the mapping are retained with a warning; entries already
// pointing at a destination prefix are left alone, which makes the
// rewrite idempotent.
func Submodules(content string, opts SubmoduleOptions) Result {
	res := newResult()

	mods := ParseGitmodules(content)
	byURL := make(map[string]Submodule, len(mods))
	for _, m := range mods {
		byURL[m.URL] = m
	}

	rewritten, retained := 0, 0
	var out []string
	currentName := ""
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := sc.Text()
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			currentName = m[1]
			out = append(out, line)
			continue
		}
		m := urlLineRe.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}

		raw := m[2]
		newURL, status := rewriteRepoURL(raw, opts.Mapping)
		switch status {
		case rewriteDone:
			rewritten++
			out = append(out, m[1]+newURL+m[3])
		case rewriteAlreadyDest:
			out = append(out, line)
		case rewriteRelative:
			retained++
			res.warnf("submodule %q uses a relative URL %q; it will resolve against the parent's new location", currentName, raw)
			out = append(out, line)
		default:
			retained++
			res.warnf("submodule %q references unmigrated repository %q; URL retained", currentName, raw)
			out = append(out, line)
		}
	}

	joined := strings.Join(out, "\n")
	if strings.HasSuffix(content, "\n") {
		joined += "\n"
	}
	res.Data = joined
	res.Metadata["submodules"] = len(mods)
	res.Metadata["rewritten"] = rewritten
	res.Metadata["retained"] = retained
	return res
}

type rewriteStatus int

const (
	rewriteDone rewriteStatus = iota
	rewriteAlreadyDest
	rewriteRelative
	rewriteNoMatch
)

// rewriteRepoURL maps one URL through the prefix mapping. Matches are
// on path-segment boundaries, longest source prefix first.
func rewriteRepoURL(raw string, mapping map[string]string) (string, rewriteStatus) {
	normalized, style := NormalizeRepoURL(raw)
	if style == StyleRelative {
		return raw, rewriteRelative
	}

	for _, destPrefix := range mapping {
		if prefixMatch(normalized, destPrefix) {
			return raw, rewriteAlreadyDest
		}
	}

	bestSrc := ""
	for src := range mapping {
		if prefixMatch(normalized, src) && len(src) > len(bestSrc) {
			bestSrc = src
		}
	}
	if bestSrc == "" {
		return raw, rewriteNoMatch
	}

	newNormalized := mapping[bestSrc] + strings.TrimPrefix(normalized, bestSrc)
	return renderRepoURL(raw, newNormalized, style), rewriteDone
}

func prefixMatch(normalized, prefix string) bool {
	if !strings.HasPrefix(normalized, prefix) {
		return false
	}
	rest := normalized[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, "/")
}

// renderRepoURL re-renders a normalized host/path URL in the style of
// the original, keeping the .git suffix only if the original had one.
func renderRepoURL(original, normalized, style string) string {
	host, path, _ := strings.Cut(normalized, "/")
	suffix := ""
	if strings.HasSuffix(strings.TrimSpace(original), ".git") {
		suffix = ".git"
	}

	switch style {
	case StyleSSH:
		user := "git"
		if m := scpLikeRe.FindStringSubmatch(original); m != nil {
			user = m[1]
		}
		return user + "@" + host + ":" + path + suffix
	case StyleSSHURL:
		return "ssh://git@" + host + "/" + path + suffix
	case StyleHTTP:
		return "http://" + host + "/" + path + suffix
	case StyleGit:
		return "git://" + host + "/" + path + suffix
	default:
		return "https://" + host + "/" + path + suffix
	}
}
