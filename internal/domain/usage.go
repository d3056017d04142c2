package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// Usage collects token usage for a single request.
// The handler puts a pointer into the context before calling the service;
// embedders and the completer add to it (possibly from several goroutines);
// the handler reads it for response headers.
type Usage struct {
	embeddingTokens  atomic.Int64
	completionTokens atomic.Int64
	modelCalls       atomic.Int64
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records consumed embedding tokens.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.embeddingTokens.Add(int64(n))
	}
}

// AddCompletion records one model call and its total tokens.
func (u *Usage) AddCompletion(tokens int) {
	if u != nil {
		u.modelCalls.Add(1)
		u.completionTokens.Add(int64(tokens))
	}
}

// EmbeddingTokens returns the embedding tokens recorded so far.
func (u *Usage) EmbeddingTokens() int64 {
	if u == nil {
		return 0
	}
	return u.embeddingTokens.Load()
}

// CompletionTokens returns the completion tokens recorded so far.
func (u *Usage) CompletionTokens() int64 {
	if u == nil {
		return 0
	}
	return u.completionTokens.Load()
}

// ModelCalls returns the number of model calls recorded so far.
func (u *Usage) ModelCalls() int64 {
	if u == nil {
		return 0
	}
	return u.modelCalls.Load()
}
