package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/normrag/internal/domain"
	"github.com/kailas-cloud/normrag/internal/domain/norm"
	"github.com/kailas-cloud/normrag/internal/metrics"
)

// TextQuery is a free-text norm search request.
type TextQuery struct {
	Query     string
	TopK      int
	AppliesTo string
	Domains   []string
	Sources   []string
}

// TextRetriever searches free-text norms with source, applicability and domain filters.
type TextRetriever struct {
	embedder domain.Embedder
	opts     Options
	logger   *zap.Logger
}

// NewTextRetriever creates a text retriever. Zero option fields take defaults.
func NewTextRetriever(embedder domain.Embedder, opts Options, logger *zap.Logger) *TextRetriever {
	return &TextRetriever{embedder: embedder, opts: opts.withDefaults(), logger: logger}
}

// Retrieve returns at most TopK norms in nearest-first order.
//
// Filters run in order: source, applies_to, domain. The applies_to filter keeps
// candidates whose best tag cosine exceeds the threshold against either the literal
// applies_to or its room-synonym form. If that would drop every candidate, or the
// tags cannot be embedded, the filter is discarded.
func (r *TextRetriever) Retrieve(ctx context.Context, idx TextIndex, q TextQuery) ([]norm.Text, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	topK := q.TopK
	if topK <= 0 {
		topK = r.opts.TextTopK
	}

	qv, err := r.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	candidates, err := idx.Nearest(qv.Embedding, topK*r.opts.TextOverfetch)
	if err != nil {
		return nil, fmt.Errorf("nearest text norms: %w", err)
	}

	if len(q.Sources) > 0 {
		candidates = filterTags(candidates, q.Sources, norm.Text.Source)
	}

	if applies := strings.ToLower(strings.TrimSpace(q.AppliesTo)); applies != "" && len(candidates) > 0 {
		candidates = r.filterApplies(ctx, candidates, applies)
	}

	if domains := r.activeDomains(q.Domains); len(domains) > 0 {
		candidates = filterTags(candidates, domains, norm.Text.Domain)
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (r *TextRetriever) activeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" || r.ignoredDomain(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r *TextRetriever) ignoredDomain(d string) bool {
	for _, s := range r.opts.IgnoredDomains {
		if strings.EqualFold(strings.TrimSpace(s), d) {
			return true
		}
	}
	return false
}

func (r *TextRetriever) filterApplies(ctx context.Context, candidates []norm.Text, applies string) []norm.Text {
	// all candidate tags plus the query forms go out in one batch; the query forms are last
	var texts []string
	owners := make([][]int, len(candidates))
	for i, c := range candidates {
		for _, tag := range c.AppliesTo() {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			owners[i] = append(owners[i], len(texts))
			texts = append(texts, tag)
		}
	}
	if len(texts) == 0 {
		r.discardApplies(applies, "no candidate has applies_to tags", nil)
		return candidates
	}
	queries := []string{applies}
	if canon := norm.NormalizeRoom(applies); canon != applies {
		queries = append(queries, canon)
	}
	first := len(texts)
	texts = append(texts, queries...)

	res, err := domain.EmbedAll(ctx, r.embedder, texts)
	if err != nil {
		r.discardApplies(applies, "applies_to embedding failed", err)
		return candidates
	}
	qvs := res.Embeddings[first:]

	kept := make([]norm.Text, 0, len(candidates))
	for i, c := range candidates {
		best := float32(math.Inf(-1))
		for _, j := range owners[i] {
			for _, qv := range qvs {
				best = max(best, cosine(qv, res.Embeddings[j]))
			}
		}
		if len(owners[i]) > 0 && best > r.opts.AppliesThreshold {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		r.discardApplies(applies, "filter would remove every candidate", nil)
		return candidates
	}
	return kept
}

func (r *TextRetriever) discardApplies(applies, reason string, err error) {
	metrics.RetrievalAppliesFallbackTotal.Inc()
	fields := []zap.Field{zap.String("applies_to", applies), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Warn("applies_to filter discarded", fields...)
}

func filterTags[T any](items []T, wanted []string, field func(T) string) []T {
	out := items[:0:0]
	for _, it := range items {
		if norm.TagsIntersect(field(it), wanted) {
			out = append(out, it)
		}
	}
	return out
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
