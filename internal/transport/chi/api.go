package chi

import (
	"time"

	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest              ErrorCode = "bad_request"
	ErrorCodeUnauthorized            ErrorCode = "unauthorized"
	ErrorCodeValidationFailed        ErrorCode = "validation_failed"
	ErrorCodeNormNotFound            ErrorCode = "norm_not_found"
	ErrorCodeRateLimited             ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	ErrorCodeCompletionProviderError ErrorCode = "completion_provider_error"
	ErrorCodeStoreUnavailable        ErrorCode = "store_unavailable"
	ErrorCodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question  string   `json:"question"`
	TextTopK  int      `json:"text_top_k,omitempty"`
	TableTopK int      `json:"table_top_k,omitempty"`
	AppliesTo string   `json:"applies_to,omitempty"`
	Domains   []string `json:"domains,omitempty"`
	Sources   []string `json:"sources,omitempty"`
}

// AskResponse is the body of a successful POST /v1/ask.
type AskResponse struct {
	Answer     string      `json:"answer"`
	TextNorms  []TextNorm  `json:"text_norms"`
	TableNorms []TableNorm `json:"table_norms"`
}

// TextNorm is the wire form of a free-text norm.
type TextNorm struct {
	ID          string   `json:"id"`
	FullID      string   `json:"full_id"`
	Source      string   `json:"source"`
	Domain      string   `json:"domain,omitempty"`
	AppliesTo   []string `json:"applies_to,omitempty"`
	Text        string   `json:"text"`
	Requirement string   `json:"requirement,omitempty"`
	Check       string   `json:"check,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Category    string   `json:"category"`
}

// TableNorm is the wire form of a table norm.
type TableNorm struct {
	Indicator string            `json:"indicator"`
	Values    map[string]string `json:"values"`
	Source    string            `json:"source"`
	FullID    string            `json:"full_id"`
	Category  string            `json:"category"`
}

// SearchResponse wraps search results.
type SearchResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	NormIDs  []string `json:"norm_ids"`
	Score    *int     `json:"score"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

func textNormToAPI(n norm.Text) TextNorm {
	return TextNorm{
		ID:          n.ID(),
		FullID:      n.FullID(),
		Source:      n.Source(),
		Domain:      n.Domain(),
		AppliesTo:   n.AppliesTo(),
		Text:        n.Text(),
		Requirement: n.Requirement(),
		Check:       n.Check(),
		Condition:   n.Condition(),
		Category:    string(norm.Classify(n)),
	}
}

func tableNormToAPI(n norm.Table) TableNorm {
	return TableNorm{
		Indicator: n.Indicator(),
		Values:    n.Values(),
		Source:    n.Source(),
		FullID:    n.FullID(),
		Category:  string(norm.Classify(n)),
	}
}

func textNormsToAPI(ns []norm.Text) []TextNorm {
	out := make([]TextNorm, len(ns))
	for i, n := range ns {
		out[i] = textNormToAPI(n)
	}
	return out
}

func tableNormsToAPI(ns []norm.Table) []TableNorm {
	out := make([]TableNorm, len(ns))
	for i, n := range ns {
		out[i] = tableNormToAPI(n)
	}
	return out
}
