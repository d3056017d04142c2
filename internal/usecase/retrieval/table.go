package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
)

// TableQuery is a table norm search request.
type TableQuery struct {
	Query   string
	TopK    int
	Sources []string
}

// TableRetriever searches indicator/value rows with an exact source filter.
type TableRetriever struct {
	embedder domain.Embedder
	opts     Options
	logger   *zap.Logger
}

// NewTableRetriever creates a table retriever. Zero option fields take defaults.
func NewTableRetriever(embedder domain.Embedder, opts Options, logger *zap.Logger) *TableRetriever {
	return &TableRetriever{embedder: embedder, opts: opts.withDefaults(), logger: logger}
}

// Retrieve returns the first TopK rows (nearest first) whose source equals one of
// Sources, trimmed and case-insensitive. An empty result is valid.
func (r *TableRetriever) Retrieve(ctx context.Context, idx TableIndex, q TableQuery) ([]norm.Table, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	topK := q.TopK
	if topK <= 0 {
		topK = r.opts.TableTopK
	}

	qv, err := r.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	candidates, err := idx.Nearest(qv.Embedding, topK*r.opts.TableOverfetch)
	if err != nil {
		return nil, fmt.Errorf("nearest table norms: %w", err)
	}

	sources := make([]string, 0, len(q.Sources))
	for _, s := range q.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}

	out := make([]norm.Table, 0, topK)
	for _, c := range candidates {
		if len(sources) > 0 && !sourceMatches(c.Source(), sources) {
			continue
		}
		out = append(out, c)
		if len(out) >= topK {
			break
		}
	}

	r.logger.Debug("Table retrieval done",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(out)),
	)
	return out, nil
}

func sourceMatches(source string, wanted []string) bool {
	source = strings.TrimSpace(source)
	for _, w := range wanted {
		if strings.EqualFold(source, w) {
			return true
		}
	}
	return false
}
