package postgres

import (
	"context"
	"fmt"
	"time"

	"newssense/internal/domain/entity"
	"newssense/internal/repository"
)

type SavedArticleRepo struct {
	db  DBTX
	now func() time.Time
}

func NewSavedArticleRepo(db DBTX) repository.SavedArticleRepository {
	return &SavedArticleRepo{db: db, now: time.Now}
}

// Save relies on the (user_id, article_id) primary key, so concurrent
// duplicate saves cannot produce two rows.
func (repo *SavedArticleRepo) Save(ctx context.Context, userID string, articleID int64) (bool, error) {
	const query = `
INSERT INTO user_saved_articles (user_id, article_id, saved_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, article_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query, userID, articleID, repo.now().UTC())
	if err != nil {
		return false, fmt.Errorf("Save: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Save: RowsAffected: %w", err)
	}
	return n == 1, nil
}

func (repo *SavedArticleRepo) ListSaved(ctx context.Context, userID string) ([]*entity.Article, error) {
	const query = `
SELECT a.id, a.url, a.title, a.summary, a.content, a.source, a.published_at,
       a.sentiment, a.topics, a.keywords, a.created_at
FROM user_saved_articles s
INNER JOIN articles a ON a.id = s.article_id
WHERE s.user_id = $1
ORDER BY s.saved_at ASC, a.id ASC`
	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListSaved: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows, 16)
	if err != nil {
		return nil, fmt.Errorf("ListSaved: %w", err)
	}
	return articles, nil
}
