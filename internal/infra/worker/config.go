package worker

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"newssense/internal/pkg/config"
	"newssense/internal/usecase/ingest"
)

// IngestConfig holds the settings for the ingestion job, whether it runs in
// the standalone worker or embedded in the API process.
//
// Environment variables:
//   - INGEST_SCHEDULE: cron spec or descriptor (default "@every 1h")
//   - INGEST_TIMEZONE: IANA timezone for cron fields (default "UTC")
//   - INGEST_TIMEOUT: per-run deadline, 10s-1h (default 5m)
//   - INGEST_PARALLELISM: concurrent inserts, 1-64 (default 4)
//   - INGEST_CATALOG: path to a YAML source catalog (default: built-in)
//   - WORKER_HEALTH_PORT: 1024-65535 (default 9091)
type IngestConfig struct {
	Schedule    string
	Timezone    string
	Timeout     time.Duration
	Parallelism int
	HealthPort  int
	Catalog     string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() IngestConfig {
	return IngestConfig{
		Schedule:    ingest.DefaultSchedule,
		Timezone:    ingest.DefaultTimezone,
		Timeout:     ingest.DefaultTimeout,
		Parallelism: ingest.DefaultParallelism,
		HealthPort:  9091,
	}
}

// SchedulerConfig converts c into the scheduler's settings.
func (c IngestConfig) SchedulerConfig() ingest.SchedulerConfig {
	return ingest.SchedulerConfig{
		Schedule: c.Schedule,
		Timeout:  c.Timeout,
		Timezone: c.Timezone,
	}
}

// Validate checks every field and reports all problems at once.
func (c *IngestConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.Timeout, 10*time.Second, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.Parallelism, 1, 64); err != nil {
		errs = append(errs, fmt.Errorf("parallelism: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv reads IngestConfig from the environment. It never
// fails: an invalid value is replaced by its default, logged, and counted
// in metrics (fail-open).
func LoadConfigFromEnv(logger *slog.Logger, metrics *JobMetrics) IngestConfig {
	cfg := DefaultConfig()
	fallback := false

	record := func(field, warning string) {
		fallback = true
		metrics.RecordFallback(field)
		logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	if r := config.LoadEnvWithFallback("INGEST_SCHEDULE", cfg.Schedule, config.ValidateCronSchedule); r.FallbackApplied {
		record("schedule", r.Warning)
	} else {
		cfg.Schedule = r.Value
	}

	if r := config.LoadEnvWithFallback("INGEST_TIMEZONE", cfg.Timezone, config.ValidateTimezone); r.FallbackApplied {
		record("timezone", r.Warning)
	} else {
		cfg.Timezone = r.Value
	}

	if r := config.LoadEnvDuration("INGEST_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, time.Hour)
	}); r.FallbackApplied {
		record("timeout", r.Warning)
	} else {
		cfg.Timeout = r.Value
	}

	if r := config.LoadEnvInt("INGEST_PARALLELISM", cfg.Parallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 64)
	}); r.FallbackApplied {
		record("parallelism", r.Warning)
	} else {
		cfg.Parallelism = r.Value
	}

	if r := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}); r.FallbackApplied {
		record("health_port", r.Warning)
	} else {
		cfg.HealthPort = r.Value
	}

	cfg.Catalog = os.Getenv("INGEST_CATALOG")

	metrics.SetFallbackActive(fallback)
	metrics.RecordLoadTimestamp()
	return cfg
}
