// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agribot_queries_resolved_total",
			Help: "Total number of queries resolved, by answering source",
		},
		[]string{"source"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agribot_source_failures_total",
			Help: "Total number of answer-source faults degraded to no-data",
		},
		[]string{"source", "error_code"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "agribot_query_duration_seconds",
			Help: "Duration of end-to-end query resolution in seconds",
		},
		[]string{"source"},
	)

	TranslationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agribot_translation_fallbacks_total",
			Help: "Total number of translation faults passed through untranslated",
		},
		[]string{"direction"},
	)
)
