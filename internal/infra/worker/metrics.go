package worker

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"newssense/internal/pkg/config"
	"newssense/internal/usecase/ingest"
)

// JobMetrics exports the ingestion job's configuration and run history.
//
// Besides the embedded ingest_config_* metrics it provides:
//   - ingest_job_runs_total{status}: success, failure or store_unavailable
//   - ingest_job_duration_seconds
//   - ingest_job_articles_stored_total
//   - ingest_job_last_success_timestamp
type JobMetrics struct {
	*config.ConfigMetrics

	RunsTotal            *prometheus.CounterVec
	Duration             prometheus.Histogram
	ArticlesStoredTotal  prometheus.Counter
	LastSuccessTimestamp prometheus.Gauge
}

// NewJobMetrics creates the metrics and registers them with reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		ConfigMetrics: config.NewConfigMetrics(reg, "ingest"),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_job_runs_total",
			Help: "Total number of ingestion job runs by status",
		}, []string{"status"}),

		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_job_duration_seconds",
			Help:    "Duration of ingestion job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300}, // 100ms - 5m
		}),

		ArticlesStoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_job_articles_stored_total",
			Help: "Total number of articles stored across all ingestion runs",
		}),

		LastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful ingestion run",
		}),
	}
	reg.MustRegister(m.RunsTotal, m.Duration, m.ArticlesStoredTotal, m.LastSuccessTimestamp)
	return m
}

// ObserveRun implements ingest.RunObserver.
func (m *JobMetrics) ObserveRun(stats ingest.Stats, err error) {
	m.Duration.Observe(stats.Duration.Seconds())
	m.ArticlesStoredTotal.Add(float64(stats.Stored))

	switch {
	case err == nil:
		m.RunsTotal.WithLabelValues("success").Inc()
		m.LastSuccessTimestamp.SetToCurrentTime()
	case errors.Is(err, ingest.ErrStoreUnavailable):
		m.RunsTotal.WithLabelValues("store_unavailable").Inc()
	default:
		m.RunsTotal.WithLabelValues("failure").Inc()
	}
}
