package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	hhttp "newssense/internal/handler/http"
	"newssense/internal/handler/http/middleware"
	"newssense/internal/handler/http/respond"
	"newssense/internal/infra/adapter/persistence"
	"newssense/internal/infra/db"
	workerPkg "newssense/internal/infra/worker"
	"newssense/internal/observability/logging"
	"newssense/internal/observability/tracing"
	"newssense/internal/usecase/ingest"
	"newssense/pkg/config"

	artUC "newssense/internal/usecase/article"
	prefUC "newssense/internal/usecase/preference"
	userUC "newssense/internal/usecase/user"
)

// DefaultPort is used when PORT is unset.
const DefaultPort = 5000

func main() {
	// .env は任意。無ければ環境変数のみ
	_ = godotenv.Load()

	logger := initLogger()
	secret := validateJWTSecret(logger)

	shutdownTracing := tracing.Init()
	defer func() { _ = shutdownTracing(context.Background()) }()

	database, driver := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	repos, err := persistence.New(driver, database)
	if err != nil {
		logger.Error("failed to set up repositories", slog.Any("error", err))
		os.Exit(1)
	}

	version := getVersion()
	components := setupServer(logger, database, repos, secret, version)
	components.Scheduler = setupScheduler(logger, repos)

	runServer(logger, components, version)
}

// initLogger builds the JSON logger from LOG_LEVEL and installs it as the default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// validateJWTSecret refuses to start with an empty, short or weak JWT_SECRET.
func validateJWTSecret(logger *slog.Logger) string {
	secret := os.Getenv("JWT_SECRET")
	if err := userUC.ValidateSecret(secret); err != nil {
		logger.Error("JWT_SECRET validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	return secret
}

// initDatabase opens the database connection and runs migrations. It also
// returns the driver name so the matching repositories can be chosen.
func initDatabase(logger *slog.Logger) (*sql.DB, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := db.OptionsFromEnv()
	database, err := db.Open(ctx, opts)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
	if err := db.MigrateUp(ctx, database, opts.Driver); err != nil {
		logger.Error("failed to migrate database", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
	return database, opts.Driver
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	return config.GetEnvString("VERSION", "dev")
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler     http.Handler
	Port        int
	AuthLimiter *middleware.IPRateLimiter
	Scheduler   *ingest.Scheduler // nil when INGEST_ENABLED=false
}

// setupServer wires the use cases, the auth limiter and CORS into the router.
func setupServer(logger *slog.Logger, database *sql.DB, repos persistence.Repositories, secret, version string) *ServerComponents {
	users := &userUC.Service{
		Users:  repos.Users,
		Tokens: userUC.NewTokenIssuer(secret, config.GetEnvDuration("JWT_TTL", userUC.DefaultTokenTTL)),
	}
	articles := &artUC.Service{Repo: repos.Articles, SavedRepo: repos.Saved}
	prefs := &prefUC.Service{Users: repos.Users, Mode: prefUC.ModeFromEnv()}

	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("CORS enabled",
		slog.Any("allowed_origins", corsConfig.AllowedOrigins),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Int("max_age", corsConfig.MaxAge))

	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}
	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (proxy headers ignored)")
	}

	limitConfig := middleware.LoadAuthRateLimitConfig()
	authLimiter := middleware.NewIPRateLimiter(limitConfig, ipExtractor)
	logger.Info("auth rate limiting enabled",
		slog.Float64("rps", limitConfig.RPS),
		slog.Int("burst", limitConfig.Burst))

	handler := hhttp.NewRouter(hhttp.RouterConfig{
		DB:          database,
		Version:     version,
		Logger:      logger,
		Users:       users,
		Articles:    articles,
		Preferences: prefs,
		CORS:        corsConfig,
		AuthLimiter: authLimiter,
	})

	port := config.GetEnvInt("PORT", DefaultPort)
	if port <= 0 || port > 65535 {
		logger.Warn("invalid PORT, using default", slog.Int("port", port))
		port = DefaultPort
	}

	return &ServerComponents{
		Handler:     handler,
		Port:        port,
		AuthLimiter: authLimiter,
	}
}

// setupScheduler builds the embedded ingestion scheduler unless
// INGEST_ENABLED=false. A broken catalog disables ingestion but keeps the
// API serving.
func setupScheduler(logger *slog.Logger, repos persistence.Repositories) *ingest.Scheduler {
	if !config.GetEnvBool("INGEST_ENABLED", true) {
		logger.Info("embedded ingestion disabled")
		return nil
	}

	jobMetrics := workerPkg.NewJobMetrics(prometheus.DefaultRegisterer)
	cfg := workerPkg.LoadConfigFromEnv(logger, jobMetrics)

	svc, err := workerPkg.NewIngestService(cfg, repos.IngestArticles, workerPkg.NewHTTPClient(), logger)
	if err != nil {
		logger.Error("ingestion disabled: failed to build ingest service", slog.Any("error", err))
		return nil
	}
	return ingest.NewScheduler(svc, cfg.SchedulerConfig(), jobMetrics, logger)
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	// Create a context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go components.AuthLimiter.RunCleanup(ctx, time.Minute)

	if components.Scheduler != nil {
		if err := components.Scheduler.Start(ctx); err != nil {
			logger.Error("failed to start ingestion scheduler", slog.Any("error", err))
			os.Exit(1)
		}
	}

	addr := fmt.Sprintf(":%d", components.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris 対策
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}

	// 実行中の取り込みはキャンセルして終了を待つ
	if components.Scheduler != nil {
		components.Scheduler.Stop()
	}
	cancel()
	logger.Info("server stopped")
}
