package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newssense/internal/domain/entity"
	"newssense/internal/infra/adapter/persistence/jsonset"
	"newssense/internal/repository"
)

const userColumns = `id, email, name, password_hash, pref_topics, pref_sources, pref_keywords, created_at`

// UserRepo implements the UserRepository interface using SQLite.
type UserRepo struct{ db *sql.DB }

// NewUserRepo creates a new SQLite-backed user repository.
func NewUserRepo(db *sql.DB) repository.UserRepository {
	return &UserRepo{db: db}
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user                      entity.User
		topics, sources, keywords string
		created                   string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&topics, &sources, &keywords, &created); err != nil {
		return nil, err
	}

	var err error
	if user.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if user.Preferences.Topics, err = jsonset.Decode([]byte(topics)); err != nil {
		return nil, err
	}
	if user.Preferences.Sources, err = jsonset.Decode([]byte(sources)); err != nil {
		return nil, err
	}
	if user.Preferences.Keywords, err = jsonset.Decode([]byte(keywords)); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts user. A taken email yields entity.ErrAlreadyExists.
func (repo *UserRepo) Create(ctx context.Context, user *entity.User) error {
	const query = `
INSERT INTO users
       (id, email, name, password_hash, pref_topics, pref_sources, pref_keywords, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO NOTHING`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := repo.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash,
		jsonset.Encode(user.Preferences.Topics),
		jsonset.Encode(user.Preferences.Sources),
		jsonset.Encode(user.Preferences.Keywords),
		formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Create: %w", entity.ErrAlreadyExists)
	}
	return nil
}

// Get returns (nil, nil) when no user has the id.
func (repo *UserRepo) Get(ctx context.Context, id string) (*entity.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	user, err := scanUser(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return user, nil
}

// GetByEmail returns (nil, nil) when no user has the email.
func (repo *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	user, err := scanUser(repo.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return user, nil
}

// UpdatePreferences overwrites all three preference sets.
func (repo *UserRepo) UpdatePreferences(ctx context.Context, id string, pref entity.Preference) error {
	const query = `UPDATE users SET pref_topics = ?, pref_sources = ?, pref_keywords = ? WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query,
		jsonset.Encode(pref.Topics), jsonset.Encode(pref.Sources), jsonset.Encode(pref.Keywords), id)
	if err != nil {
		return fmt.Errorf("UpdatePreferences: ExecContext: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdatePreferences: %w", entity.ErrNotFound)
	}
	return nil
}

// SavedArticleRepo implements the SavedArticleRepository interface using SQLite.
type SavedArticleRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSavedArticleRepo creates a new SQLite-backed saved-article repository.
func NewSavedArticleRepo(db *sql.DB) repository.SavedArticleRepository {
	return &SavedArticleRepo{db: db, now: time.Now}
}

// Save adds the article to the user's list; the primary key keeps it unique.
func (repo *SavedArticleRepo) Save(ctx context.Context, userID string, articleID int64) (bool, error) {
	const query = `
INSERT INTO user_saved_articles (user_id, article_id, saved_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id, article_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query, userID, articleID, formatTime(repo.now()))
	if err != nil {
		return false, fmt.Errorf("Save: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Save: RowsAffected: %w", err)
	}
	return n == 1, nil
}

// ListSaved returns the user's saved articles in the order they were saved.
func (repo *SavedArticleRepo) ListSaved(ctx context.Context, userID string) ([]*entity.Article, error) {
	const query = `
SELECT a.id, a.url, a.title, a.summary, a.content, a.source, a.published_at,
       a.sentiment, a.topics, a.keywords, a.created_at
FROM user_saved_articles s
INNER JOIN articles a ON a.id = s.article_id
WHERE s.user_id = ?
ORDER BY s.saved_at ASC, a.id ASC`
	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListSaved: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, fmt.Errorf("ListSaved: %w", err)
	}
	return articles, nil
}
