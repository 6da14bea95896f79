package ingest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"newssense/internal/domain/entity"
	"newssense/internal/observability/logging"
	"newssense/internal/observability/metrics"
	"newssense/internal/observability/tracing"
	"newssense/internal/repository"
	"newssense/internal/resilience/circuitbreaker"
	"newssense/internal/usecase/sentiment"
)

// DefaultParallelism bounds concurrent article inserts per batch.
const DefaultParallelism = 4

// Stats summarises one ingestion batch.
type Stats struct {
	Candidates int
	Duplicates int
	Stored     int
	Failed     int
	Duration   time.Duration
}

// Service ingests one batch of candidates per call.
type Service struct {
	Source      CandidateSource
	Repo        repository.ArticleRepository
	Tagger      sentiment.Tagger
	Parallelism int

	now func() time.Time
}

// NewService creates a Service. A nil tagger means keyword tagging, and a
// non-positive parallelism means DefaultParallelism.
func NewService(src CandidateSource, repo repository.ArticleRepository, tagger sentiment.Tagger, parallelism int) *Service {
	if tagger == nil {
		tagger = sentiment.KeywordTagger{}
	}
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Service{
		Source:      src,
		Repo:        repo,
		Tagger:      tagger,
		Parallelism: parallelism,
		now:         time.Now,
	}
}

// Ingest fetches candidates, skips URLs already stored, tags the rest and
// stores them. Running it twice over the same candidates stores nothing new
// the second time.
//
// Per-article failures are logged and counted in Stats.Failed. A store
// connectivity failure aborts the batch with an error wrapping
// ErrStoreUnavailable; Stats then holds the progress made so far.
func (s *Service) Ingest(ctx context.Context) (Stats, error) {
	ctx, span := tracing.Start(ctx, "ingest.run")
	defer span.End()

	logger := logging.WithRequestID(ctx, logging.FromContext(ctx))
	start := time.Now()
	var stats Stats

	cands, err := s.Source.Candidates(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch candidates: %w", err)
	}
	stats.Candidates = len(cands)
	if len(cands) == 0 {
		stats.Duration = time.Since(start)
		logger.Info("ingestion batch empty")
		return stats, nil
	}

	// N+1 回避: 事前に全URLをまとめて存在チェック
	urls := make([]string, 0, len(cands))
	for _, c := range cands {
		urls = append(urls, c.URL)
	}
	exists, err := s.Repo.ExistsByURLBatch(ctx, urls)
	if err != nil {
		if isStoreUnavailable(err) {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("%w: batch check urls: %w", ErrStoreUnavailable, err)
		}
		// 一意制約が最終判定なので続行する
		logger.Warn("batch url check failed, relying on unique constraint",
			slog.Any("error", err))
		exists = map[string]bool{}
	}

	var stored, duplicates, failed atomic.Int64
	seen := make(map[string]struct{}, len(cands))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallelism())

	for _, c := range cands {
		if _, dup := seen[c.URL]; dup || exists[c.URL] {
			duplicates.Add(1)
			continue
		}
		seen[c.URL] = struct{}{}

		if egCtx.Err() != nil {
			break
		}

		cand := c
		eg.Go(func() error {
			art := cand.toArticle(s.tag(egCtx, logger, cand), s.now().UTC())
			if err := art.Validate(); err != nil {
				failed.Add(1)
				logger.Warn("invalid candidate, skipping",
					slog.String("url", cand.URL),
					slog.String("source", cand.Source),
					slog.Any("error", err))
				return nil
			}

			inserted, err := s.Repo.Create(egCtx, art)
			if err != nil {
				if isStoreUnavailable(err) {
					return fmt.Errorf("%w: create article: %w", ErrStoreUnavailable, err)
				}
				failed.Add(1)
				logger.Warn("failed to store article, skipping",
					slog.String("url", cand.URL),
					slog.Any("error", err))
				return nil
			}
			if inserted {
				stored.Add(1)
			} else {
				// 並行実行された別バッチが先に挿入した
				duplicates.Add(1)
			}
			return nil
		})
	}

	runErr := eg.Wait()

	stats.Stored = int(stored.Load())
	stats.Duplicates = int(duplicates.Load())
	stats.Failed = int(failed.Load())
	stats.Duration = time.Since(start)

	metrics.RecordCandidates(metrics.ResultStored, stats.Stored)
	metrics.RecordCandidates(metrics.ResultDuplicate, stats.Duplicates)
	metrics.RecordCandidates(metrics.ResultFailed, stats.Failed)
	metrics.RecordIngestRun(stats.Duration)

	if runErr != nil {
		logger.Error("ingestion batch aborted",
			slog.Int("stored", stats.Stored),
			slog.Any("error", runErr))
		return stats, runErr
	}

	logger.Info("ingestion batch completed",
		slog.Int("candidates", stats.Candidates),
		slog.Int("stored", stats.Stored),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func (s *Service) parallelism() int {
	if s.Parallelism <= 0 {
		return DefaultParallelism
	}
	return s.Parallelism
}

func (s *Service) tag(ctx context.Context, logger *slog.Logger, c Candidate) entity.Sentiment {
	text := sentiment.Input(c.Title, c.Summary)
	name := sentiment.NameOf(s.Tagger)

	got, err := s.Tagger.Tag(ctx, text)
	if err != nil || !got.IsValid() {
		logger.Warn("sentiment tagger failed, using keyword tagging",
			slog.String("tagger", name),
			slog.String("url", c.URL),
			slog.Any("error", err))
		metrics.RecordTaggerFallback(name)
		got = sentiment.Tag(text)
		name = sentiment.KeywordTagger{}.Name()
	}
	metrics.RecordTagged(name, string(got))
	return got
}

// isStoreUnavailable reports whether err means the store itself cannot be
// reached, as opposed to one statement failing.
func isStoreUnavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if circuitbreaker.IsRejected(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
