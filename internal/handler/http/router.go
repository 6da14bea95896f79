package http

import (
	"log/slog"
	"net/http"

	"newssense/internal/handler/http/auth"
	"newssense/internal/handler/http/middleware"
	"newssense/internal/handler/http/news"
	"newssense/internal/handler/http/preferences"
	"newssense/internal/handler/http/requestid"
	"newssense/internal/observability/tracing"
)

// Users is what the router needs from the user use case.
type Users interface {
	auth.Accounts
	auth.Authenticator
}

// RouterConfig collects the API's dependencies.
type RouterConfig struct {
	DB          Pinger
	Version     string
	Logger      *slog.Logger
	Users       Users
	Articles    news.Articles
	Preferences preferences.Preferences
	CORS        middleware.CORSConfig
	// AuthLimiter throttles register and login per client IP; nil disables it.
	AuthLimiter *middleware.IPRateLimiter
}

// NewRouter mounts every route and wraps the mux in the middleware chain:
// request ID, tracing, logging, recover, metrics, CORS, body limit.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	// 公開エンドポイント
	mux.Handle("GET /{$}", RootHandler{})
	mux.Handle("GET /health", &HealthHandler{DB: cfg.DB, Version: cfg.Version})
	mux.Handle("GET /ready", &ReadyHandler{DB: cfg.DB})
	mux.Handle("GET /live", LiveHandler{})
	mux.Handle("GET /metrics", MetricsHandler())

	var limit func(http.Handler) http.Handler
	if cfg.AuthLimiter != nil {
		limit = cfg.AuthLimiter.Middleware
	}
	auth.Register(mux, cfg.Users, limit)

	// 認証必須
	gate := auth.Gate(cfg.Users)
	news.Register(mux, cfg.Articles, gate)
	preferences.Register(mux, cfg.Preferences, gate)

	cors := cfg.CORS
	if cors.Logger == nil {
		cors.Logger = logger
	}
	return Chain(mux,
		requestid.Middleware,
		tracing.Middleware,
		Logging(logger),
		Recover(logger),
		MetricsMiddleware,
		middleware.CORS(cors),
		LimitRequestBody(MaxRequestBodyBytes),
	)
}
