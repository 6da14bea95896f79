package postgres

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

// DBTX is the subset of *sql.DB the repositories need.
// circuitbreaker.DBCircuitBreaker satisfies it as well.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const articleColumns = `id, url, title, summary, content, source, published_at, sentiment, topics, keywords, created_at`

type ArticleRepo struct {
	db           DBTX
	queryBuilder *FeedQueryBuilder
}

func NewArticleRepo(db DBTX) repository.ArticleRepository {
	return &ArticleRepo{
		db:           db,
		queryBuilder: NewFeedQueryBuilder(),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*entity.Article, error) {
	var (
		article          entity.Article
		sentiment        string
		topics, keywords []byte
	)
	if err := row.Scan(&article.ID, &article.URL, &article.Title, &article.Summary,
		&article.Content, &article.Source, &article.PublishedAt, &sentiment,
		&topics, &keywords, &article.CreatedAt); err != nil {
		return nil, err
	}
	article.Sentiment = entity.Sentiment(sentiment)

	var err error
	if article.Topics, err = jsonset.Decode(topics); err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}
	if article.Keywords, err = jsonset.Decode(keywords); err != nil {
		return nil, fmt.Errorf("keywords: %w", err)
	}
	return &article, nil
}

func scanArticles(rows *sql.Rows, capacity int) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, capacity)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `
SELECT ` + articleColumns + `
FROM articles
WHERE id = $1
LIMIT 1`
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
	whereClause, args := repo.queryBuilder.BuildWhereClause(filter)
	limit := filter.EffectiveLimit()
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s
FROM articles
%s
ORDER BY published_at DESC, id DESC
LIMIT $%d`, articleColumns, whereClause, len(args))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Feed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("Feed: %w", err)
	}
	return articles, nil
}

// Create inserts article; a URL that is already stored is silently skipped.
func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) (bool, error) {
	const query = `
INSERT INTO articles
       (url, title, summary, content, source, published_at, sentiment, topics, keywords, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10)
ON CONFLICT (url) DO NOTHING`

	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := repo.db.ExecContext(ctx, query,
		article.URL, article.Title, article.Summary, article.Content, article.Source,
		article.PublishedAt, string(article.Sentiment),
		jsonset.Encode(article.Topics), jsonset.Encode(article.Keywords), createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("Create: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create: RowsAffected: %w", err)
	}
	return n == 1, nil
}

// ExistsByURLBatch はバッチでURL存在チェックを行い、N+1問題を解消する
func (repo *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return make(map[string]bool), nil
	}

	placeholders := make([]string, len(urls))
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = u
	}
	query := "SELECT url FROM articles WHERE url IN (" + strings.Join(placeholders, ", ") + ")"

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool, len(urls))
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
