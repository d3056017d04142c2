package synthesis

import "github.com/kailas-cloud/normrag/internal/domain"

// Completer is the consumer interface for the model-call capability (ISP).
type Completer interface {
	domain.Completer
}

// ProgressFunc receives the completed fraction (0..1) and a human-readable label.
type ProgressFunc func(fraction float64, label string)
