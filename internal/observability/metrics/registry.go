// Package metrics holds the Prometheus metrics for ingestion and sentiment
// tagging. HTTP metrics live with the HTTP middleware.
//
// All metrics are registered with the default registry and exposed on /metrics.
//
//	metrics.RecordCandidate(metrics.ResultStored)
//	metrics.RecordIngestRun(stats.Duration)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Candidate outcomes for IngestCandidatesTotal.
const (
	ResultStored    = "stored"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)

// Ingestion metrics
var (
	// IngestCandidatesTotal counts candidates by outcome.
	IngestCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_candidates_total",
			Help: "Total number of ingestion candidates by outcome",
		},
		[]string{"result"},
	)

	// IngestRunDuration measures one full ingestion batch.
	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Time taken by one ingestion batch",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// SourceFetchErrorsTotal counts candidate source failures.
	SourceFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of candidate source fetch errors",
		},
		[]string{"source"},
	)
)

// Sentiment metrics
var (
	// ArticlesTaggedTotal counts tagged articles by tagger and resulting sentiment.
	ArticlesTaggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_tagged_total",
			Help: "Total number of articles tagged with a sentiment",
		},
		[]string{"tagger", "sentiment"},
	)

	// TaggerFallbacksTotal counts model tagger failures answered by the keyword tagger.
	TaggerFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_tagger_fallbacks_total",
			Help: "Total number of model tagger calls that fell back to keyword tagging",
		},
		[]string{"tagger"},
	)

	// TaggerDuration measures model tagger latency.
	TaggerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentiment_tagger_duration_seconds",
			Help:    "Time taken by a model tagger call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"tagger"},
	)
)
