package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"newssense/internal/usecase/ingest"
)

// HealthServer serves the standalone worker's probes:
//   - GET /health: liveness, always 200
//   - GET /health/ready: 200 once SetReady(true), else 503
//   - GET /health/last-run: outcome of the most recent ingestion run
//
// It also implements ingest.RunObserver so it can be chained after
// JobMetrics to record the last run.
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady atomic.Bool
	server  *http.Server

	mu      sync.RWMutex
	lastRun *runReport
}

type healthResponse struct {
	Status string `json:"status"`
}

type runReport struct {
	FinishedAt time.Time `json:"finishedAt"`
	Stored     int       `json:"stored"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// NewHealthServer creates a not-yet-ready server listening on addr once started.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{addr: addr, logger: logger}
}

// Handler returns the probe routes.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleLiveness)
	mux.HandleFunc("GET /health/ready", h.handleReadiness)
	mux.HandleFunc("GET /health/last-run", h.handleLastRun)
	return mux
}

// Start serves until ctx is cancelled, then shuts down within 5 seconds.
// It returns http.ErrServerClosed after a clean shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		errChan <- h.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady flips the readiness probe.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

// ObserveRun implements ingest.RunObserver.
func (h *HealthServer) ObserveRun(stats ingest.Stats, err error) {
	r := &runReport{
		FinishedAt: time.Now().UTC(),
		Stored:     stats.Stored,
		Duplicates: stats.Duplicates,
		Failed:     stats.Failed,
		DurationMS: stats.Duration.Milliseconds(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	h.mu.Lock()
	h.lastRun = r
	h.mu.Unlock()
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func (h *HealthServer) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	r := h.lastRun
	h.mu.RUnlock()

	if r == nil {
		h.writeJSON(w, http.StatusNotFound, healthResponse{Status: "no run yet"})
		return
	}
	h.writeJSON(w, http.StatusOK, r)
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}

// Observers fans a finished run out to several observers.
type Observers []ingest.RunObserver

// ObserveRun implements ingest.RunObserver.
func (o Observers) ObserveRun(stats ingest.Stats, err error) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveRun(stats, err)
		}
	}
}
