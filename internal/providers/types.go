package providers

import "context"

// Completer produces a single-turn completion for the auto-reply path:
// one system prompt, one user message, plain text out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// message mirrors the chat-completions wire format.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
