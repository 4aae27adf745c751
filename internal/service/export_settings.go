package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/ssh"

	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// settingsSummary is the project-level configuration snapshot.
type settingsSummary struct {
	Visibility           string `json:"visibility"`
	Archived             bool   `json:"archived"`
	DefaultBranch        string `json:"default_branch,omitempty"`
	IssuesEnabled        bool   `json:"issues_enabled"`
	MergeRequestsEnabled bool   `json:"merge_requests_enabled"`
	WikiEnabled          bool   `json:"wiki_enabled"`
	LFSEnabled           bool   `json:"lfs_enabled"`
	PackagesEnabled      bool   `json:"packages_enabled"`
}

// exportedDeployKey is a deploy key with its public-key fingerprint,
// which is what operators use to recognize keys on the destination.
type exportedDeployKey struct {
	source.DeployKey
	Fingerprint string `json:"fingerprint,omitempty"`
}

func keyFingerprint(authorizedKey string) string {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(pub)
}

func (e *Exporter) exportSettings(ctx context.Context, run *exportRun, dir string) (map[string]any, error) {
	p := run.project
	summary := map[string]any{}

	settings := settingsSummary{
		Visibility:           p.Visibility,
		Archived:             p.Archived,
		DefaultBranch:        p.DefaultBranch,
		IssuesEnabled:        p.IssuesEnabled,
		MergeRequestsEnabled: p.MergeRequestsEnabled,
		WikiEnabled:          p.WikiEnabled,
		LFSEnabled:           p.LFSEnabled,
		PackagesEnabled:      p.PackagesEnabled,
	}
	if err := writeJSONFile(filepath.Join(dir, "settings.json"), settings); err != nil {
		return nil, err
	}

	protectedBranches, err := e.src.ListProtectedBranches(ctx, p.ID)
	if err != nil {
		summary["protected_branches_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "protected_branches.json"), protectedBranches); err != nil {
			return summary, err
		}
		summary["protected_branches"] = len(protectedBranches)
	}

	protectedTags, err := e.src.ListProtectedTags(ctx, p.ID)
	if err != nil {
		summary["protected_tags_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "protected_tags.json"), protectedTags); err != nil {
			return summary, err
		}
		summary["protected_tags"] = len(protectedTags)
	}

	members, err := e.src.ListMembers(ctx, p.ID)
	if err != nil {
		summary["members_error"] = err.Error()
	} else {
		byLevel := map[string][]string{}
		for _, m := range members {
			label := source.AccessLevelName(m.AccessLevel)
			byLevel[label] = append(byLevel[label], m.Username)
		}
		for _, names := range byLevel {
			sort.Strings(names)
		}
		if err := writeJSONFile(filepath.Join(dir, "members.json"), byLevel); err != nil {
			return summary, err
		}
		summary["members"] = len(members)
	}

	hooks, err := e.src.ListWebhooks(ctx, p.ID)
	if err != nil {
		summary["webhooks_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "webhooks.json"), hooks); err != nil {
			return summary, err
		}
		summary["webhooks"] = len(hooks)
	}

	keys, err := e.src.ListDeployKeys(ctx, p.ID)
	if err != nil {
		summary["deploy_keys_error"] = err.Error()
	} else {
		exported := make([]exportedDeployKey, 0, len(keys))
		for _, k := range keys {
			exported = append(exported, exportedDeployKey{
				DeployKey:   k,
				Fingerprint: keyFingerprint(k.Key),
			})
		}
		if err := writeJSONFile(filepath.Join(dir, "deploy_keys.json"), exported); err != nil {
			return summary, err
		}
		summary["deploy_keys"] = len(exported)
	}

	tokens, err := e.src.ListDeployTokens(ctx, p.ID)
	if err != nil {
		summary["deploy_tokens_error"] = err.Error()
	} else {
		if err := writeJSONFile(filepath.Join(dir, "deploy_tokens.json"), tokens); err != nil {
			return summary, err
		}
		summary["deploy_tokens"] = len(tokens)
		if len(tokens) > 0 {
			run.summary.Gaps = append(run.summary.Gaps,
				fmt.Sprintf("%d deploy token(s) must be recreated manually; secrets are never exported", len(tokens)))
		}
	}

	return summary, nil
}
