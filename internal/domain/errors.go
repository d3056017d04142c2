package domain

import "errors"

var (
	// ErrNotFound signals a missing norm.
	ErrNotFound = errors.New("not found")
	// ErrInvalidNorm signals a norm record missing required fields.
	ErrInvalidNorm = errors.New("invalid norm")
	// ErrEmptyQuery signals a blank question or search query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidFeedback signals a feedback record with empty required fields.
	ErrInvalidFeedback = errors.New("invalid feedback")
	// ErrIndexMismatch signals that a vector index and its collection are not row-aligned.
	ErrIndexMismatch = errors.New("index and collection are not aligned")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a model-call (completion) provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)
