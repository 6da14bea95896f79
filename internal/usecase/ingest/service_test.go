package ingest_test

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newssense/internal/domain/entity"
	"newssense/internal/infra/adapter/persistence/sqlite"
	"newssense/internal/infra/db"
	"newssense/internal/observability/logging"
	"newssense/internal/repository"
	"newssense/internal/usecase/ingest"
)

/* ────────────────────────────  スタブ  ──────────────────────────── */

type stubRepo struct {
	mu        sync.Mutex
	byURL     map[string]*entity.Article
	existsErr error
	createErr func(a *entity.Article) error
	creates   int
}

func newStubRepo() *stubRepo {
	return &stubRepo{byURL: map[string]*entity.Article{}}
}

func (r *stubRepo) Get(_ context.Context, id int64) (*entity.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byURL {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) Feed(context.Context, repository.ArticleFilter) ([]*entity.Article, error) {
	return nil, nil
}

func (r *stubRepo) Create(_ context.Context, a *entity.Article) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		if err := r.createErr(a); err != nil {
			return false, err
		}
	}
	if _, ok := r.byURL[a.URL]; ok {
		return false, nil
	}
	a.ID = int64(len(r.byURL) + 1)
	r.byURL[a.URL] = a
	return true, nil
}

func (r *stubRepo) ExistsByURLBatch(_ context.Context, urls []string) (map[string]bool, error) {
	if r.existsErr != nil {
		return nil, r.existsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(urls))
	for _, u := range urls {
		if _, ok := r.byURL[u]; ok {
			out[u] = true
		}
	}
	return out, nil
}

type failingTagger struct{}

func (failingTagger) Tag(context.Context, string) (entity.Sentiment, error) {
	return "", errors.New("model unavailable")
}

func staticSource(cands ...ingest.Candidate) ingest.CandidateSource {
	return ingest.CandidateSourceFunc(func(context.Context) ([]ingest.Candidate, error) {
		return cands, nil
	})
}

func cand(n int, title string) ingest.Candidate {
	return ingest.Candidate{
		Title:       title,
		Summary:     "summary",
		Content:     "content",
		Source:      "BBC",
		URL:         fmt.Sprintf("https://example.com/news/%d", n),
		PublishedAt: time.Date(2025, 7, 1, n, 0, 0, 0, time.UTC),
		Topics:      []string{"Technology"},
		Keywords:    []string{"technology", "news", "development"},
	}
}

/* ────────────────────────────  テスト  ──────────────────────────── */

func TestIngest_StoresAndTags(t *testing.T) {
	repo := newStubRepo()
	svc := ingest.NewService(staticSource(
		cand(1, "A great success"),
		cand(2, "Terrible trouble ahead"),
		cand(3, "Parliament meets"),
	), repo, nil, 2)

	stats, err := svc.Ingest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Candidates)
	assert.Equal(t, 3, stats.Stored)
	assert.Zero(t, stats.Duplicates)
	assert.Zero(t, stats.Failed)

	assert.Equal(t, entity.SentimentPositive, repo.byURL["https://example.com/news/1"].Sentiment)
	assert.Equal(t, entity.SentimentNegative, repo.byURL["https://example.com/news/2"].Sentiment)
	assert.Equal(t, entity.SentimentNeutral, repo.byURL["https://example.com/news/3"].Sentiment)
	assert.False(t, repo.byURL["https://example.com/news/1"].CreatedAt.IsZero())
}

func TestIngest_Idempotent(t *testing.T) {
	repo := newStubRepo()
	svc := ingest.NewService(staticSource(cand(1, "one"), cand(2, "two")), repo, nil, 0)

	first, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stored)

	second, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Stored)
	assert.Equal(t, 2, second.Duplicates)
	assert.Len(t, repo.byURL, 2)
}

func TestIngest_DuplicateURLWithinBatch(t *testing.T) {
	repo := newStubRepo()
	svc := ingest.NewService(staticSource(cand(1, "one"), cand(1, "one again")), repo, nil, 4)

	stats, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, repo.creates)
}

func TestIngest_PerArticleFailureDoesNotAbort(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = func(a *entity.Article) error {
		if a.URL == "https://example.com/news/2" {
			return errors.New("check constraint violated")
		}
		return nil
	}
	invalid := cand(4, "")

	svc := ingest.NewService(staticSource(cand(1, "one"), cand(2, "two"), cand(3, "three"), invalid), repo, nil, 1)

	stats, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 2, stats.Failed)
}

func TestIngest_ConnectivityFailureAborts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad connection", driver.ErrBadConn},
		{"open circuit", gobreaker.ErrOpenState},
		{"deadline", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubRepo()
			repo.createErr = func(*entity.Article) error { return tt.err }
			svc := ingest.NewService(staticSource(cand(1, "one"), cand(2, "two")), repo, nil, 1)

			_, err := svc.Ingest(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ingest.ErrStoreUnavailable))
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestIngest_BatchCheckFailure(t *testing.T) {
	t.Run("query error falls back to unique constraint", func(t *testing.T) {
		repo := newStubRepo()
		repo.existsErr = errors.New("syntax error")
		svc := ingest.NewService(staticSource(cand(1, "one")), repo, nil, 1)

		stats, err := svc.Ingest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Stored)
	})

	t.Run("connectivity error aborts", func(t *testing.T) {
		repo := newStubRepo()
		repo.existsErr = fmt.Errorf("exists: %w", driver.ErrBadConn)
		svc := ingest.NewService(staticSource(cand(1, "one")), repo, nil, 1)

		_, err := svc.Ingest(context.Background())
		assert.True(t, errors.Is(err, ingest.ErrStoreUnavailable))
		assert.Zero(t, repo.creates)
	})
}

func TestIngest_SourceFailure(t *testing.T) {
	srcErr := errors.New("feed down")
	svc := ingest.NewService(ingest.CandidateSourceFunc(func(context.Context) ([]ingest.Candidate, error) {
		return nil, srcErr
	}), newStubRepo(), nil, 1)

	_, err := svc.Ingest(context.Background())
	assert.True(t, errors.Is(err, srcErr))
}

func TestIngest_EmptyBatch(t *testing.T) {
	repo := newStubRepo()
	stats, err := ingest.NewService(staticSource(), repo, nil, 1).Ingest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
	assert.Zero(t, repo.creates)
}

func TestIngest_TaggerFallback(t *testing.T) {
	repo := newStubRepo()
	svc := ingest.NewService(staticSource(cand(1, "An excellent result")), repo, failingTagger{}, 1)

	_, err := svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.SentimentPositive, repo.byURL["https://example.com/news/1"].Sentiment)
}

func TestIngest_TaggerFallbackLogsWithContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, "info").With(slog.String("run_id", "run-7")))
	svc := ingest.NewService(staticSource(cand(1, "An excellent result")), newStubRepo(), failingTagger{}, 1)

	_, err := svc.Ingest(ctx)
	require.NoError(t, err)

	var fallback map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "sentiment tagger failed, using keyword tagging" {
			fallback = entry
		}
	}
	require.NotNil(t, fallback, buf.String())
	assert.Equal(t, "run-7", fallback["run_id"])
	assert.Equal(t, "https://example.com/news/1", fallback["url"])
}

func TestIngest_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Options{Driver: db.DriverSQLite, DSN: ":memory:", Pool: db.DefaultConnectionConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.MigrateUp(ctx, conn, db.DriverSQLite))

	repo := sqlite.NewArticleRepo(conn)
	cands := make([]ingest.Candidate, 0, 10)
	for i := 1; i <= 10; i++ {
		cands = append(cands, cand(i, fmt.Sprintf("headline %d", i)))
	}
	svc := ingest.NewService(staticSource(cands...), repo, nil, 4)

	first, err := svc.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Stored)

	second, err := svc.Ingest(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Stored)
	assert.Equal(t, 10, second.Duplicates)

	feed, err := repo.Feed(ctx, repository.ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, feed, 10)
	assert.Equal(t, "https://example.com/news/10", feed[0].URL)
}
