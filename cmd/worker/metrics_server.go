package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"newssense/pkg/config"
)

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// BreakerResponse reports the database circuit breaker guarding ingestion writes.
type BreakerResponse struct {
	Enabled bool   `json:"enabled"`
	State   string `json:"state,omitempty"`
	Open    bool   `json:"open"`
}

// breaker is the part of *circuitbreaker.DBCircuitBreaker the probe reads.
type breaker interface {
	State() gobreaker.State
	IsOpen() bool
}

// startMetricsServer starts the Prometheus metrics HTTP server in the
// background and shuts it down within 5 seconds once ctx is cancelled.
//
// Endpoints:
//   - GET /metrics: Prometheus exposition
//   - GET /health: liveness, always 200
//   - GET /health/breaker: database breaker state, 503 while open
//
// Environment variables:
//   - METRICS_PORT: port to listen on (default 9090)
func startMetricsServer(ctx context.Context, logger *slog.Logger, b breaker) *http.Server {
	port := getMetricsPort()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      metricsMux(b),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("metrics server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("metrics server stopped")
		}
	}()

	return server
}

func metricsMux(b breaker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /health/breaker", breakerHealthHandler(b))
	return mux
}

// getMetricsPort reads METRICS_PORT, falling back to 9090 when unset or out of range.
func getMetricsPort() int {
	port := config.GetEnvInt("METRICS_PORT", 9090)
	if port <= 0 || port > 65535 {
		return 9090
	}
	return port
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// breakerHealthHandler answers 200 while the breaker is closed or half-open
// and 503 while it is open. SQLite deployments have no breaker.
func breakerHealthHandler(b breaker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if b == nil {
			writeJSON(w, http.StatusOK, BreakerResponse{Enabled: false})
			return
		}
		resp := BreakerResponse{Enabled: true, State: b.State().String(), Open: b.IsOpen()}
		code := http.StatusOK
		if resp.Open {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
