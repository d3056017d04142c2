package retrieval

import (
	"context"
	"errors"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// --- Mocks ---

// fakeEmbedder maps known texts to fixed vectors; unknown texts get fallback.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	batchErr error
	batches  [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: f.vector(text), TotalTokens: 1}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.batches = append(f.batches, texts)
	if f.batchErr != nil {
		return domain.BatchEmbeddingResult{}, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	if f.fallback != nil {
		return f.fallback
	}
	return []float32{0, 0, 1}
}

type fakeTextIndex struct {
	ranked []norm.Text
	gotK   int
	err    error
}

func (f *fakeTextIndex) Nearest(_ []float32, k int) ([]norm.Text, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.ranked) {
		k = len(f.ranked)
	}
	return f.ranked[:k], nil
}

type fakeTableIndex struct {
	ranked []norm.Table
	gotK   int
}

func (f *fakeTableIndex) Nearest(_ []float32, k int) ([]norm.Table, error) {
	f.gotK = k
	if k > len(f.ranked) {
		k = len(f.ranked)
	}
	return f.ranked[:k], nil
}

var errIndex = errors.New("index broken")

// --- Fixtures ---

func textNorm(id, source, dom string, applies ...string) norm.Text {
	return norm.ReconstructText(norm.TextFields{
		ID:        id,
		FullID:    norm.FullID(source, id),
		Source:    source,
		Domain:    dom,
		AppliesTo: applies,
		Text:      "норма " + id,
	})
}

func tableNorm(indicator, source string) norm.Table {
	return norm.ReconstructTable(indicator, map[string]string{"I": "1"}, source, source+":"+indicator)
}

func fullIDs(items []norm.Text) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.FullID()
	}
	return out
}
