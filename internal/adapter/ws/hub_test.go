package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/ForgeShift/internal/port/broadcast"
)

// Compile-time interface check.
var _ broadcast.Broadcaster = (*Hub)(nil)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestBroadcastNoConnections(t *testing.T) {
	hub := NewHub(nil)

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    EventRunStatus,
		Payload: []byte(`{"run_id":"r1"}`),
	})
}

func TestBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub(nil)

	// A channel cannot be marshaled to JSON; should log, not panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close(websocket.StatusNormalClosure, "") }()

	// The hub registers the connection before HandleWS returns, so one
	// poll loop is enough to see it.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.BroadcastEvent(ctx, EventExportComponent, ExportComponentEvent{
		RunID:     "r1",
		ProjectID: 42,
		Component: "issues",
		Status:    "complete",
	})

	_, data, err := client.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if msg.Type != EventExportComponent {
		t.Fatalf("unexpected type %q", msg.Type)
	}
	var event ExportComponentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if event.ProjectID != 42 || event.Component != "issues" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestRemoveNonexistent(t *testing.T) {
	hub := NewHub(nil)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &conn{ws: nil, cancel: cancel}
	hub.remove(c)
}
