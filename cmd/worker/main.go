package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"newssense/internal/handler/http/respond"
	"newssense/internal/infra/adapter/persistence"
	"newssense/internal/infra/db"
	workerPkg "newssense/internal/infra/worker"
	"newssense/internal/observability/logging"
	"newssense/internal/observability/tracing"
	"newssense/internal/usecase/ingest"
)

// waitForMigrations polls until the API has created the schema.
func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM articles LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	logger := initLogger()
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

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 設定は fail-open: 不正値はデフォルトに置き換えてメトリクスに記録
	jobMetrics := workerPkg.NewJobMetrics(prometheus.DefaultRegisterer)
	cfg := workerPkg.LoadConfigFromEnv(logger, jobMetrics)
	logger.Info("worker configuration loaded",
		slog.String("schedule", cfg.Schedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("parallelism", cfg.Parallelism),
		slog.Int("health_port", cfg.HealthPort))

	// Start metrics HTTP server
	var dbBreaker breaker
	if repos.Breaker != nil {
		dbBreaker = repos.Breaker
	}
	startMetricsServer(ctx, logger, dbBreaker)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", cfg.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	svc, err := workerPkg.NewIngestService(cfg, repos.IngestArticles, workerPkg.NewHTTPClient(), logger)
	if err != nil {
		logger.Error("failed to build ingest service", slog.Any("error", err))
		os.Exit(1)
	}

	scheduler := ingest.NewScheduler(svc, cfg.SchedulerConfig(),
		workerPkg.Observers{jobMetrics, healthServer}, logger)
	runWorker(ctx, logger, scheduler, healthServer)
}

// initLogger builds the JSON logger from LOG_LEVEL and installs it as the default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) (*sql.DB, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := db.OptionsFromEnv()
	database, err := db.Open(ctx, opts)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
	waitForMigrations(logger, database)
	return database, opts.Driver
}

// runWorker starts the scheduler and blocks until SIGINT or SIGTERM.
func runWorker(ctx context.Context, logger *slog.Logger, scheduler *ingest.Scheduler, healthServer *workerPkg.HealthServer) {
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	healthServer.SetReady(false)
	scheduler.Stop()
	logger.Info("worker stopped")
}
