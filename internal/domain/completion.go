package domain

import "context"

// Completer is the stateless model-call capability: one prompt in, one response text out.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// CompletionRequest is a single text-completion call.
type CompletionRequest struct {
	Model  string
	Prompt string
}

// CompletionResult carries the raw model response and its token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
