// Package llm defines the chat-completion port used for optional
// model-assisted estimates and SOW narrative generation. The
// rule-based paths never depend on it.
package llm

import "context"

// Request is one chat-completion request.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Client is the port interface for a chat-completion model.
type Client interface {
	// Complete returns the model's text answer. Callers must treat the
	// answer as untrusted and parse it defensively.
	Complete(ctx context.Context, req Request) (string, error)
}
