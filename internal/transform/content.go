package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ContentOptions configures markdown body rewriting for issues, merge
// requests and comments.
type ContentOptions struct {
	// UserMap maps source usernames to destination usernames.
	UserMap map[string]string
	// DestRepo is the owner/repo slug used to qualify #n cross-references.
	DestRepo string
	// AttachmentBase replaces the source /uploads/ prefix in attachment
	// links. Empty means attachments are left in place with a warning.
	AttachmentBase string
	// Author, CreatedAt and SourceURL feed the attribution header. No
	// header is prepended when Author is empty.
	Author    string
	CreatedAt time.Time
	SourceURL string
}

var (
	mentionRe    = regexp.MustCompile(`(^|[^\w/@])@([a-zA-Z0-9][a-zA-Z0-9_-]*(?:\.[a-zA-Z0-9_-]+)*)`)
	issueRefRe   = regexp.MustCompile(`(^|[^\w&!/#])#(\d+)\b`)
	mrRefRe      = regexp.MustCompile(`(^|[^\w!/#])!(\d+)\b`)
	attachmentRe = regexp.MustCompile(`\]\((/uploads/[^)\s]+)\)`)
)

// Content rewrites a markdown body for the destination forge: user
// mentions through the user map, #n references qualified with the
// destination repository, !n merge request references to #n, and
// attachment links onto the new base. Task list syntax is identical on
// both forges and passes through untouched.
//
// An unmapped mention is wrapped in backticks so it cannot ping an
// unrelated destination account that happens to own the name.
func Content(body string, opts ContentOptions) Result {
	res := newResult()

	out := body
	if opts.Author != "" {
		out = Attribution(opts.Author, opts.CreatedAt, opts.SourceURL) + out
	}

	mapped, unmapped := 0, 0
	seen := map[string]bool{}
	out = mentionRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := mentionRe.FindStringSubmatch(m)
		prefix, user := sub[1], sub[2]
		dest, ok := opts.UserMap[user]
		if !ok {
			dest, ok = opts.UserMap[strings.ToLower(user)]
		}
		if ok && dest != "" {
			mapped++
			return prefix + "@" + dest
		}
		unmapped++
		if !seen[user] {
			seen[user] = true
			res.warnf("mention @%s has no destination user; left inert", user)
		}
		return prefix + "`@" + user + "`"
	})

	issueRefs := len(issueRefRe.FindAllString(out, -1))
	if issueRefs > 0 {
		if opts.DestRepo == "" {
			res.warnf("%d issue references left unqualified; no destination repository configured", issueRefs)
		} else {
			out = issueRefRe.ReplaceAllString(out, "${1}"+opts.DestRepo+"#${2}")
		}
	}

	mrRefs := len(mrRefRe.FindAllString(out, -1))
	out = mrRefRe.ReplaceAllString(out, "${1}#${2}")

	attachments := len(attachmentRe.FindAllString(out, -1))
	if attachments > 0 {
		if opts.AttachmentBase == "" {
			res.warnf("%d attachment links still point at the source forge; no attachment base configured", attachments)
		} else {
			base := strings.TrimSuffix(opts.AttachmentBase, "/")
			out = attachmentRe.ReplaceAllString(out, "]("+base+"${1})")
		}
	}

	res.Data = out
	res.Metadata["mentions_mapped"] = mapped
	res.Metadata["mentions_unmapped"] = unmapped
	res.Metadata["issue_refs"] = issueRefs
	res.Metadata["mr_refs"] = mrRefs
	res.Metadata["attachments"] = attachments
	return res
}

// Attribution renders the header that keeps original authorship visible
// after migration, since destination items are created by the token
// identity rather than the original author.
func Attribution(author string, createdAt time.Time, sourceURL string) string {
	return fmt.Sprintf("_Originally authored by @%s on %s. Migrated from %s._\n\n",
		author, createdAt.Format("2006-01-02"), sourceURL)
}

// labelInvalidRe matches characters the destination rejects in label
// names. Everything printable is allowed except control characters.
var labelInvalidRe = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// CleanLabel strips invalid characters from a label name and truncates
// to the destination's 50 character limit.
func CleanLabel(name string) string {
	clean := labelInvalidRe.ReplaceAllString(name, "")
	clean = strings.TrimSpace(clean)
	runes := []rune(clean)
	if len(runes) > 50 {
		clean = strings.TrimSpace(string(runes[:50]))
	}
	return clean
}

// CleanLabels cleans every name, drops the ones that clean to nothing
// and deduplicates case-insensitively, keeping the first spelling. The
// output is sorted so identical inputs produce identical plans.
func CleanLabels(names []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(names))
	for _, n := range names {
		clean := CleanLabel(n)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, clean)
	}
	sort.Strings(out)
	return out
}
