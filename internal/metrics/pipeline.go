package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	SynthesisBatches = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "normrag",
			Name:      "synthesis_batches",
			Help:      "Number of batch prompts per synthesis run",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		},
		[]string{"mode"},
	)

	SynthesisBatchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Name:      "synthesis_batch_failures_total",
			Help:      "Batch model calls that degraded into an inline error",
		},
	)

	RetrievalAppliesFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Name:      "retrieval_applies_fallback_total",
			Help:      "Text retrievals where the applies_to filter was discarded",
		},
	)

	StoreReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "normrag",
			Name:      "store_reloads_total",
			Help:      "Norm store reload attempts",
		},
		[]string{"result"}, // "swapped" / "misaligned" / "error"
	)

	StoreRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "normrag",
			Name:      "store_records",
			Help:      "Records in the active norm store",
		},
		[]string{"kind"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers retrieval, synthesis and store metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SynthesisBatches)
	prometheus.MustRegister(SynthesisBatchFailuresTotal)
	prometheus.MustRegister(RetrievalAppliesFallbackTotal)
	prometheus.MustRegister(StoreReloadsTotal)
	prometheus.MustRegister(StoreRecords)
	pipelineMetricsRegistered = true
}
