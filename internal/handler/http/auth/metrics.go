package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes for auth_requests_total.
const (
	ResultSuccess      = "success"
	ResultMissingToken = "missing_token"
	ResultInvalidToken = "invalid_token"
	ResultError        = "error"
)

var (
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total authenticated-route requests by gate outcome",
		},
		[]string{"result"},
	)

	authDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_duration_seconds",
			Help:    "Time spent verifying the bearer token and loading its user",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	// bcrypt が支配的なので別に計測
	credentialRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_credential_requests_total",
			Help: "Register and login attempts by endpoint and outcome",
		},
		[]string{"endpoint", "result"},
	)
)

func recordAuth(result string, start time.Time) {
	authRequestsTotal.WithLabelValues(result).Inc()
	authDuration.Observe(time.Since(start).Seconds())
}

func recordCredential(endpoint, result string) {
	credentialRequestsTotal.WithLabelValues(endpoint, result).Inc()
}
