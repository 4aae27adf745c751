package transform

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Strob0t/ForgeShift/internal/port/dest"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

func TestWebhooksEventDictionary(t *testing.T) {
	hooks := []source.Webhook{{
		URL:                   "https://ci.example.com/hook",
		PushEvents:            true,
		TagPushEvents:         true,
		IssuesEvents:          true,
		MergeRequestsEvents:   true,
		NoteEvents:            true,
		PipelineEvents:        true,
		WikiPageEvents:        true,
		ReleasesEvents:        true,
		EnableSSLVerification: true,
	}}

	res := Webhooks(hooks)
	if !res.Success {
		t.Fatalf("errors: %v", res.Errors)
	}
	params := res.Data.([]dest.WebhookParams)
	if len(params) != 1 {
		t.Fatalf("params = %d", len(params))
	}
	want := []string{"push", "create", "issues", "pull_request", "issue_comment", "workflow_run", "gollum", "release"}
	if !reflect.DeepEqual(params[0].Events, want) {
		t.Errorf("events = %v, want %v", params[0].Events, want)
	}
	if params[0].Secret != "" {
		t.Error("secret must never be carried from the source")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestWebhooksEmptyDefaultsToPush(t *testing.T) {
	hooks := []source.Webhook{{URL: "https://x.example.com", EnableSSLVerification: true}}

	res := Webhooks(hooks)
	params := res.Data.([]dest.WebhookParams)
	if !reflect.DeepEqual(params[0].Events, []string{"push"}) {
		t.Errorf("events = %v", params[0].Events)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "defaulting to push") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestWebhooksUnmappableEventsWarn(t *testing.T) {
	hooks := []source.Webhook{{
		URL:                      "https://x.example.com",
		PushEvents:               true,
		JobEvents:                true,
		ConfidentialIssuesEvents: true,
		EnableSSLVerification:    true,
	}}

	res := Webhooks(hooks)
	if len(res.Warnings) != 2 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	params := res.Data.([]dest.WebhookParams)
	if !reflect.DeepEqual(params[0].Events, []string{"push"}) {
		t.Errorf("events = %v", params[0].Events)
	}
}

func TestWebhooksInsecureSSLWarns(t *testing.T) {
	hooks := []source.Webhook{{URL: "https://x.example.com", PushEvents: true}}

	res := Webhooks(hooks)
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "TLS") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}
