package normstore

import (
	"fmt"

	"github.com/kailas-cloud/normrag/internal/vectorindex"
)

// Collection pairs an ordered record sequence with its vector index.
// Row i of the index is record i.
type Collection[T any] struct {
	records []T
	index   *vectorindex.Flat
}

// NewCollection pairs records with index. index may be nil for an empty collection.
func NewCollection[T any](records []T, index *vectorindex.Flat) *Collection[T] {
	return &Collection[T]{records: records, index: index}
}

// Records returns the records in index order.
func (c *Collection[T]) Records() []T { return c.records }

// Len returns the number of records.
func (c *Collection[T]) Len() int { return len(c.records) }

// IndexLen returns the number of index rows.
func (c *Collection[T]) IndexLen() int {
	if c.index == nil {
		return 0
	}
	return c.index.Len()
}

// Aligned reports whether every index row has a matching record.
func (c *Collection[T]) Aligned() bool { return c.IndexLen() == len(c.records) }

// Nearest returns up to k records closest to vec, nearest first.
// Index rows without a matching record are dropped.
func (c *Collection[T]) Nearest(vec []float32, k int) ([]T, error) {
	if c.index == nil || k <= 0 {
		return nil, nil
	}
	hits, err := c.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	out := make([]T, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(c.records) {
			continue
		}
		out = append(out, c.records[h.Index])
	}
	return out, nil
}
