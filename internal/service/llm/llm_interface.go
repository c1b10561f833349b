package llm

import "context"

// Message is one provider-facing chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the normalized request every adapter accepts.
// Messages already carry the composed system prompt first.
type CompletionRequest struct {
	Model            string
	Messages         []Message
	Temperature      float64
	TopP             float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Provider is a single adapter for one provider's API shape
type Provider interface {
	// Complete sends one non-streaming request and returns the reply text.
	// Failures are *TransportError or *EmptyResponseError.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name identifies the adapter in logs and errors
	Name() string
}
