package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding purposes. Queries are embedded by the server per question;
// documents are embedded by normindex rebuild.
const (
	EmbedPurposeQuery    = "query"
	EmbedPurposeDocument = "document"
)

// Embedding provider metrics, split by purpose so index rebuilds do not skew
// question latency.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Subsystem: "embedding",
			Name:      "provider_requests_total",
			Help:      "Embedding API calls by purpose and outcome",
		},
		[]string{"purpose", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "normrag",
			Subsystem: "embedding",
			Name:      "provider_request_duration_seconds",
			Help:      "Embedding API call latency; a rebuild call carries a whole chunk",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"purpose", "model"},
	)

	EmbeddingBatchTexts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "normrag",
			Subsystem: "embedding",
			Name:      "provider_batch_texts",
			Help:      "Texts sent per embedding API call",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9), // 1..256
		},
		[]string{"purpose"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Embedding tokens billed by the provider",
		},
		[]string{"purpose", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Embedding failures: api_error, count_mismatch or bad_index",
		},
		[]string{"purpose", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Subsystem: "embedding",
			Name:      "cache_lookups_total",
			Help:      "Embedding cache lookups per text",
		},
		[]string{"purpose", "result"}, // result: hit / miss
	)
)

// CacheCounter returns the cache counter for one purpose, leaving only the result label.
func CacheCounter(purpose string) *prometheus.CounterVec {
	return EmbeddingCacheTotal.MustCurryWith(prometheus.Labels{"purpose": purpose})
}

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the embedding metrics. Safe to call twice.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingBatchTexts,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
