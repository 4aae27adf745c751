package transform

import (
	"github.com/Strob0t/ForgeShift/internal/port/dest"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

// Webhooks maps source project hooks to destination webhook parameters.
// The event dictionary is fixed; source events with no destination
// equivalent produce warnings, and a hook that ends up with no events
// defaults to push. Hook secrets are never carried over; the Secret
// field is left for the operator to fill.
func Webhooks(hooks []source.Webhook) Result {
	res := newResult()

	params := make([]dest.WebhookParams, 0, len(hooks))
	for _, h := range hooks {
		params = append(params, convertWebhook(h, &res))
	}

	res.Data = params
	res.Metadata["hooks"] = len(params)
	return res
}

func convertWebhook(h source.Webhook, res *Result) dest.WebhookParams {
	var events []string
	add := func(e string) {
		for _, have := range events {
			if have == e {
				return
			}
		}
		events = append(events, e)
	}

	if h.PushEvents {
		add("push")
	}
	if h.TagPushEvents {
		add("create")
	}
	if h.IssuesEvents {
		add("issues")
	}
	if h.ConfidentialIssuesEvents {
		res.warnf("hook %s: confidential issue events have no destination equivalent; confidential issues arrive as regular issues", h.URL)
	}
	if h.MergeRequestsEvents {
		add("pull_request")
	}
	if h.NoteEvents {
		add("issue_comment")
	}
	if h.JobEvents {
		res.warnf("hook %s: per-job events have no destination equivalent", h.URL)
	}
	if h.PipelineEvents {
		add("workflow_run")
	}
	if h.WikiPageEvents {
		add("gollum")
	}
	if h.DeploymentEvents {
		add("deployment_status")
	}
	if h.ReleasesEvents {
		add("release")
	}

	if len(events) == 0 {
		events = []string{"push"}
		res.warnf("hook %s: no mappable events, defaulting to push", h.URL)
	}

	if !h.EnableSSLVerification {
		res.warnf("hook %s skips TLS verification at the source; destination hooks always verify", h.URL)
	}

	return dest.WebhookParams{
		URL:         h.URL,
		ContentType: "json",
		Events:      events,
		Active:      true,
	}
}
