package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// The protection API requires the top-level keys to be present even
// when unset, so nil pointers marshal to explicit nulls. Restrictions
// stay null so a rule never narrows who may push.
type protectionPayload struct {
	RequiredStatusChecks       *statusChecksPayload `json:"required_status_checks"`
	EnforceAdmins              bool                 `json:"enforce_admins"`
	RequiredPullRequestReviews *reviewsPayload      `json:"required_pull_request_reviews"`
	Restrictions               any                  `json:"restrictions"`
	AllowForcePushes           bool                 `json:"allow_force_pushes"`
	AllowDeletions             bool                 `json:"allow_deletions"`
}

type statusChecksPayload struct {
	Strict   bool     `json:"strict"`
	Contexts []string `json:"contexts"`
}

type reviewsPayload struct {
	RequiredApprovingReviewCount int  `json:"required_approving_review_count"`
	RequireCodeOwnerReviews      bool `json:"require_code_owner_reviews"`
}

func (p *Provider) PutBranchProtection(ctx context.Context, owner, repo, branch string, params dest.BranchProtectionParams) error {
	payload := protectionPayload{
		EnforceAdmins:    params.EnforceAdmins,
		AllowForcePushes: params.AllowForcePushes,
	}
	if params.RequiredReviews > 0 || params.RequireCodeOwnerReviews {
		payload.RequiredPullRequestReviews = &reviewsPayload{
			RequiredApprovingReviewCount: params.RequiredReviews,
			RequireCodeOwnerReviews:      params.RequireCodeOwnerReviews,
		}
	}
	if len(params.RequiredStatusChecks) > 0 {
		payload.RequiredStatusChecks = &statusChecksPayload{Contexts: params.RequiredStatusChecks}
	}
	path := repoPath(owner, repo, "/branches/"+url.PathEscape(branch)+"/protection")
	if _, err := p.client.Do(ctx, http.MethodPut, path, nil, payload); err != nil {
		return fmt.Errorf("github branch protection %q: %w", branch, err)
	}
	return nil
}

func (p *Provider) AddCollaborator(ctx context.Context, owner, repo, username, permission string) error {
	path := repoPath(owner, repo, "/collaborators/"+url.PathEscape(username))
	body := map[string]string{"permission": permission}
	if _, err := p.client.Do(ctx, http.MethodPut, path, nil, body); err != nil {
		return fmt.Errorf("github add collaborator %q: %w", username, err)
	}
	return nil
}

type webhookPayload struct {
	Name   string            `json:"name"`
	Active bool              `json:"active"`
	Events []string          `json:"events"`
	Config map[string]string `json:"config"`
}

func (p *Provider) CreateWebhook(ctx context.Context, owner, repo string, params dest.WebhookParams) (int64, error) {
	config := map[string]string{"url": params.URL}
	if params.ContentType != "" {
		config["content_type"] = params.ContentType
	}
	if params.Secret != "" {
		config["secret"] = params.Secret
	}
	payload := webhookPayload{Name: "web", Active: params.Active, Events: params.Events, Config: config}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := p.doJSON(ctx, http.MethodPost, repoPath(owner, repo, "/hooks"), nil, payload, &created); err != nil {
		return 0, fmt.Errorf("github create webhook: %w", err)
	}
	return created.ID, nil
}

func (p *Provider) DeleteWebhook(ctx context.Context, owner, repo string, id int64) error {
	path := repoPath(owner, repo, "/hooks/"+strconv.FormatInt(id, 10))
	if _, err := p.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("github delete webhook %d: %w", id, err)
	}
	return nil
}
