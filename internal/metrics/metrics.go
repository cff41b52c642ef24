// Package metrics exposes the ranker's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheHits counts embedding cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranker_embedding_cache_hits_total",
		Help: "Number of embedding cache hits.",
	})

	// CacheMisses counts embedding cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranker_embedding_cache_misses_total",
		Help: "Number of embedding cache misses.",
	})

	// ScoreRequests counts scoring calls by provenance.
	ScoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ranker_score_requests_total",
		Help: "Number of score/compare item evaluations by provenance.",
	}, []string{"provenance"})

	// ModelFallbacks counts per-call degradations from model to heuristic.
	ModelFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranker_model_fallbacks_total",
		Help: "Number of model inference failures absorbed by the heuristic fallback.",
	})

	// ExportSkippedPairs counts pairs skipped during dataset export.
	ExportSkippedPairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranker_export_skipped_pairs_total",
		Help: "Number of pairs skipped during export because a referenced item was missing.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
