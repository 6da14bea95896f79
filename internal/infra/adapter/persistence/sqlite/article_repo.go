// Package sqlite provides SQLite implementations of repository interfaces.
// It backs local development (DB_DRIVER=sqlite) with the same semantics as
// the PostgreSQL adapter, except keyword matching uses LIKE instead of a
// full-text index.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"newssense/internal/domain/entity"
	"newssense/internal/infra/adapter/persistence/jsonset"
	"newssense/internal/repository"
)

// timeLayout is fixed width so that ORDER BY on the TEXT column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

const articleColumns = `id, url, title, summary, content, source, published_at, sentiment, topics, keywords, created_at`

// ArticleRepo implements the ArticleRepository interface using SQLite.
type ArticleRepo struct{ db *sql.DB }

// NewArticleRepo creates a new SQLite-backed article repository.
func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*entity.Article, error) {
	var (
		article            entity.Article
		sentiment          string
		published, created string
		topics, keywords   string
	)
	if err := row.Scan(&article.ID, &article.URL, &article.Title, &article.Summary,
		&article.Content, &article.Source, &published, &sentiment,
		&topics, &keywords, &created); err != nil {
		return nil, err
	}
	article.Sentiment = entity.Sentiment(sentiment)

	var err error
	if article.PublishedAt, err = parseTime(published); err != nil {
		return nil, err
	}
	if article.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if article.Topics, err = jsonset.Decode([]byte(topics)); err != nil {
		return nil, err
	}
	if article.Keywords, err = jsonset.Decode([]byte(keywords)); err != nil {
		return nil, err
	}
	return &article, nil
}

func scanArticles(rows *sql.Rows) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, repository.FeedLimit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return articles, nil
}

// Get returns (nil, nil) when no article has the id.
func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `SELECT ` + articleColumns + ` FROM articles WHERE id = ? LIMIT 1`
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

// Feed returns the newest articles matching any active predicate of filter.
func (repo *ArticleRepo) Feed(ctx context.Context, filter repository.ArticleFilter) ([]*entity.Article, error) {
	whereClause, args := buildWhereClause(filter)
	args = append(args, filter.EffectiveLimit())

	query := `SELECT ` + articleColumns + ` FROM articles ` + whereClause +
		` ORDER BY published_at DESC, id DESC LIMIT ?`

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Feed: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, fmt.Errorf("Feed: %w", err)
	}
	return articles, nil
}

// buildWhereClause mirrors the PostgreSQL builder with SQLite primitives:
// json_each for topic membership and LIKE for keywords.
func buildWhereClause(filter repository.ArticleFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	in := func(values []string) string {
		for _, v := range values {
			args = append(args, v)
		}
		return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	}

	if len(filter.Topics) > 0 {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(articles.topics) WHERE json_each.value IN ("+in(filter.Topics)+"))")
	}
	if len(filter.Sources) > 0 {
		conditions = append(conditions, "source IN ("+in(filter.Sources)+")")
	}
	for _, kw := range filter.Keywords {
		pattern := "%" + escapeLike(kw) + "%"
		conditions = append(conditions,
			`(title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " OR "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Create inserts article; a URL that is already stored is silently skipped.
func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) (bool, error) {
	const query = `
INSERT INTO articles
       (url, title, summary, content, source, published_at, sentiment, topics, keywords, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (url) DO NOTHING`

	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	sentiment := article.Sentiment
	if sentiment == "" {
		sentiment = entity.SentimentNeutral
	}
	res, err := repo.db.ExecContext(ctx, query,
		article.URL, article.Title, article.Summary, article.Content, article.Source,
		formatTime(article.PublishedAt), string(sentiment),
		jsonset.Encode(article.Topics), jsonset.Encode(article.Keywords), formatTime(createdAt),
	)
	if err != nil {
		return false, fmt.Errorf("Create: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create: RowsAffected: %w", err)
	}
	return n == 1, nil
}

// ExistsByURLBatch はバッチでURL存在チェックを行い、N+1問題を解消する
func (repo *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	args := make([]interface{}, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	query := "SELECT url FROM articles WHERE url IN (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(urls)), ", ") + ")"

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: rows.Err: %w", err)
	}
	return result, nil
}
