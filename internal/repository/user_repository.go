package repository

import (
	"context"

	"newssense/internal/domain/entity"
)

type UserRepository interface {
	// Create returns entity.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, user *entity.User) error
	// Get and GetByEmail return (nil, nil) when no user matches.
	Get(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePreferences(ctx context.Context, id string, pref entity.Preference) error
}

// SavedArticleRepository manages each user's saved-article set.
type SavedArticleRepository interface {
	// Save adds the article to the user's list; added is false if it was already there.
	Save(ctx context.Context, userID string, articleID int64) (added bool, err error)
	// ListSaved returns saved articles in the order they were saved.
	ListSaved(ctx context.Context, userID string) ([]*entity.Article, error)
}
