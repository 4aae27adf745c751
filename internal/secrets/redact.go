package secrets

import "regexp"

// urlCredRe matches the userinfo section of a URL. Group 1 is the
// user, group 2 the optional ":password" part.
var urlCredRe = regexp.MustCompile(`://([^/@\s:]+)(:[^@/\s]*)?@`)

// tokenRe matches well-known forge token shapes wherever they appear:
// GitLab personal and deploy tokens and the GitHub token family.
var tokenRe = regexp.MustCompile(`\b(glpat-[0-9A-Za-z_-]{8,}|github_pat_[0-9A-Za-z_]{8,}|gh[oprsu]_[0-9A-Za-z]{8,})\b`)

// Redact scrubs credential material from s without needing a Vault.
// A URL password becomes ****; a bare userinfo credential (the
// "https://token@host" form) is masked whole; recognizable token
// literals are masked wherever they occur. Git stderr and clone URLs
// pass through here before they reach an error message or a log line.
func Redact(s string) string {
	s = urlCredRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := urlCredRe.FindStringSubmatch(m)
		if sub[2] == "" {
			return "://****@"
		}
		return "://" + sub[1] + ":****@"
	})
	return tokenRe.ReplaceAllString(s, "****")
}
