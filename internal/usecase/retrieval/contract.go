package retrieval

import "github.com/kailas-cloud/normrag/internal/domain/norm"

// TextIndex is the consumer interface for the text collection (ISP).
type TextIndex interface {
	Nearest(vec []float32, k int) ([]norm.Text, error)
}

// TableIndex is the consumer interface for the table collection (ISP).
type TableIndex interface {
	Nearest(vec []float32, k int) ([]norm.Table, error)
}
