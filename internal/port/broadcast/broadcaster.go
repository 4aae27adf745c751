// Package broadcast defines the port for pushing live run progress to
// connected observers. Services emit through it; the WebSocket hub is
// the adapter. A no-op implementation stands in when the status server
// is disabled.
package broadcast

import "context"

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Nop discards every event.
type Nop struct{}

// BroadcastEvent implements Broadcaster by doing nothing.
func (Nop) BroadcastEvent(context.Context, string, any) {}
