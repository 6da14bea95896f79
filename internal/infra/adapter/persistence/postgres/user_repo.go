package postgres

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

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) repository.UserRepository {
	return &UserRepo{db: db}
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user                      entity.User
		topics, sources, keywords []byte
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&topics, &sources, &keywords, &user.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if user.Preferences.Topics, err = jsonset.Decode(topics); err != nil {
		return nil, fmt.Errorf("pref_topics: %w", err)
	}
	if user.Preferences.Sources, err = jsonset.Decode(sources); err != nil {
		return nil, fmt.Errorf("pref_sources: %w", err)
	}
	if user.Preferences.Keywords, err = jsonset.Decode(keywords); err != nil {
		return nil, fmt.Errorf("pref_keywords: %w", err)
	}
	return &user, nil
}

// Create inserts user. A taken email yields entity.ErrAlreadyExists.
func (repo *UserRepo) Create(ctx context.Context, user *entity.User) error {
	const query = `
INSERT INTO users
       (id, email, name, password_hash, pref_topics, pref_sources, pref_keywords, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8)
ON CONFLICT (email) DO NOTHING`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := repo.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash,
		jsonset.Encode(user.Preferences.Topics),
		jsonset.Encode(user.Preferences.Sources),
		jsonset.Encode(user.Preferences.Keywords),
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Create: %w", entity.ErrAlreadyExists)
	}
	return nil
}

func (repo *UserRepo) Get(ctx context.Context, id string) (*entity.User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1`
	user, err := scanUser(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return user, nil
}

func (repo *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const query = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
LIMIT 1`
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
	const query = `
UPDATE users SET
       pref_topics   = $1::jsonb,
       pref_sources  = $2::jsonb,
       pref_keywords = $3::jsonb
WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query,
		jsonset.Encode(pref.Topics), jsonset.Encode(pref.Sources), jsonset.Encode(pref.Keywords), id)
	if err != nil {
		return fmt.Errorf("UpdatePreferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdatePreferences: %w", entity.ErrNotFound)
	}
	return nil
}
