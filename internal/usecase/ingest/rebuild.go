package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/batch"
	"github.com/kailas-cloud/normrag/internal/vectorindex"
)

// DefaultChunkSize is the number of records embedded per call during a rebuild.
const DefaultChunkSize = 256

// Embeddable is implemented by both norm kinds.
type Embeddable interface {
	EmbeddingText() string
}

// EmbeddingTexts returns the indexed text of every record, in row order.
func EmbeddingTexts[T Embeddable](records []T) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.EmbeddingText()
	}
	return out
}

// Rebuilder re-embeds a whole collection into a fresh index.
type Rebuilder struct {
	embedder  domain.Embedder
	dim       int
	chunkSize int
	logger    *zap.Logger
}

// NewRebuilder creates a rebuilder producing indexes of dimension dim.
func NewRebuilder(embedder domain.Embedder, dim, chunkSize int, logger *zap.Logger) *Rebuilder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Rebuilder{embedder: embedder, dim: dim, chunkSize: chunkSize, logger: logger}
}

// Rebuild embeds texts in order so that index row i is record i.
func (r *Rebuilder) Rebuild(ctx context.Context, texts []string) (*vectorindex.Flat, error) {
	idx, err := vectorindex.New(r.dim)
	if err != nil {
		return nil, err
	}

	done := 0
	for chunk := range batch.Split(texts, r.chunkSize) {
		res, err := domain.EmbedAll(ctx, r.embedder, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed rows %d..%d: %w", done, done+len(chunk)-1, err)
		}
		if err := idx.Add(res.Embeddings...); err != nil {
			return nil, fmt.Errorf("add rows %d..%d: %w", done, done+len(chunk)-1, err)
		}
		done += len(chunk)
		r.logger.Info("Embedded chunk", zap.Int("done", done), zap.Int("total", len(texts)))
	}
	return idx, nil
}
