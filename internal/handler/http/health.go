// Package http holds the API's HTTP plumbing: middleware, metrics, health
// probes and the router that mounts the auth, news and preference handlers.
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"newssense/internal/handler/http/respond"
	"newssense/internal/observability/logging"
)

// Pinger is the part of *sql.DB the probes need.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"` // "ok" or "degraded"
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthHandler reports whether the database answers. 200 {"status":"ok"}
// when it does, 503 {"status":"degraded"} otherwise.
type HealthHandler struct {
	DB      Pinger
	Version string
	now     func() time.Time
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := time.Now
	if h.now != nil {
		now = h.now
	}

	db := h.checkDatabase(ctx)
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: now().UTC().Format(time.RFC3339),
		Version:   h.Version,
		Checks:    map[string]CheckStatus{"database": db},
	}
	code := http.StatusOK
	if db.Status != "ok" {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
		logging.FromContext(r.Context()).Warn("health check degraded",
			slog.String("database", db.Message))
	}
	respond.JSON(w, code, resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if h.DB == nil {
		return CheckStatus{Status: "down", Message: "not configured"}
	}
	if err := h.DB.PingContext(ctx); err != nil {
		// DSN などを含み得るのでマスク
		return CheckStatus{Status: "down", Message: respond.SanitizeError(err)}
	}

	check := CheckStatus{Status: "ok"}
	if sp, ok := h.DB.(interface{ Stats() sql.DBStats }); ok {
		stats := sp.Stats()
		check.Details = map[string]any{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
		}
	}
	return check
}

// ReadyHandler is the readiness probe: 200 "ready" once the database answers.
type ReadyHandler struct {
	DB Pinger
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		respond.Message(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	if err := h.DB.PingContext(ctx); err != nil {
		respond.Message(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// LiveHandler is the liveness probe; it answers as long as the process serves HTTP.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// RootStatus is the body of GET /.
type RootStatus struct {
	ActiveStatus bool `json:"activestatus"`
	Error        bool `json:"error"`
}

// RootHandler answers GET / with {"activestatus":true,"error":false}.
type RootHandler struct{}

func (RootHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, RootStatus{ActiveStatus: true, Error: false})
}
