package transform

import (
	"strings"

	"github.com/Strob0t/ForgeShift/internal/port/dest"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// ProtectionOptions configures branch protection mapping.
type ProtectionOptions struct {
	// RequiredApprovals is the source project's merge request approval
	// count, carried over as the required review count.
	RequiredApprovals int
	// SynthesizeCodeOwners emits a CODEOWNERS file from the approval
	// rule owners when any are known.
	SynthesizeCodeOwners bool
	CodeOwners           []string
}

// ProtectionRule pairs a branch name with its destination parameters.
type ProtectionRule struct {
	Branch string                      `json:"branch"`
	Params dest.BranchProtectionParams `json:"params"`
}

// ProtectionSet is the full mapped protection state for one project.
type ProtectionSet struct {
	Rules      []ProtectionRule `json:"rules"`
	CodeOwners string           `json:"codeowners,omitempty"`
}

// Role-based access levels that translate cleanly. Anything else on a
// protection rule names a specific user or group, which the destination
// expresses through restriction lists that need manual mapping.
func roleLevel(level int) bool {
	switch level {
	case 0, 30, 40, 60:
		return true
	}
	return false
}

// Protections maps source protected branches onto destination branch
// protection parameters. Admin enforcement stays off because source
// maintainers and admins bypass protections there too.
func Protections(branches []source.ProtectedBranch, opts ProtectionOptions) Result {
	res := newResult()

	set := ProtectionSet{Rules: make([]ProtectionRule, 0, len(branches))}
	wildcards := 0
	for _, b := range branches {
		if strings.ContainsAny(b.Name, "*?") {
			wildcards++
			res.warnf("wildcard rule %q has no destination equivalent; recreate it as a repository ruleset", b.Name)
		}
		flagRestrictions(&res, b.Name, "push", b.PushAccessLevels)
		flagRestrictions(&res, b.Name, "merge", b.MergeAccessLevels)

		set.Rules = append(set.Rules, ProtectionRule{
			Branch: b.Name,
			Params: dest.BranchProtectionParams{
				RequiredReviews:         opts.RequiredApprovals,
				RequireCodeOwnerReviews: b.CodeOwnerApprovalRequired,
				EnforceAdmins:           false,
				AllowForcePushes:        b.AllowForcePush,
			},
		})
	}

	if opts.SynthesizeCodeOwners && len(opts.CodeOwners) > 0 {
		var sb strings.Builder
		sb.WriteString("# Generated from merge request approval rules during migration.\n")
		sb.WriteString("*")
		for _, owner := range opts.CodeOwners {
			sb.WriteString(" @" + owner)
		}
		sb.WriteString("\n")
		set.CodeOwners = sb.String()
	}

	res.Data = set
	res.Metadata["rules"] = len(set.Rules)
	res.Metadata["wildcards"] = wildcards
	res.Metadata["codeowners"] = set.CodeOwners != ""
	return res
}

func flagRestrictions(res *Result, branch, kind string, levels []source.AccessLevel) {
	for _, lvl := range levels {
		if roleLevel(lvl.AccessLevel) {
			continue
		}
		who := lvl.Description
		if who == "" {
			who = source.AccessLevelName(lvl.AccessLevel)
		}
		res.warnf("%s restriction %q on branch %q requires manual user or team mapping", kind, who, branch)
	}
}
