// Package vectorindex is an exact nearest-neighbour index over float32 vectors.
package vectorindex

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/normrag/internal/domain"
)

// Hit is one search result: the row position and its squared L2 distance.
type Hit struct {
	Index    int
	Distance float32
}

// Flat is an append-only brute-force L2 index. Row i is the i-th added vector.
// Searches are safe for concurrent use once no more vectors are added.
type Flat struct {
	dim  int
	data []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of rows.
func (f *Flat) Len() int { return len(f.data) / f.dim }

// Add appends vectors as new rows.
func (f *Flat) Add(vecs ...[]float32) error {
	for i, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d: got %d dims, index has %d: %w",
				i, len(v), f.dim, domain.ErrVectorDimMismatch)
		}
	}
	for _, v := range vecs {
		f.data = append(f.data, v...)
	}
	return nil
}

// Row returns a copy of row i.
func (f *Flat) Row(i int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out
}

// Search returns up to k rows ordered by ascending distance to q.
// Ties keep row order.
func (f *Flat) Search(q []float32, k int) ([]Hit, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("query has %d dims, index has %d: %w", len(q), f.dim, domain.ErrVectorDimMismatch)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}

	hits := make([]Hit, n)
	for i := range n {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var d float32
		for j, x := range row {
			diff := x - q[j]
			d += diff * diff
		}
		hits[i] = Hit{Index: i, Distance: d}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}
