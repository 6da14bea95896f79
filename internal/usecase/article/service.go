package article

import (
	"context"
	"fmt"

	"newssense/internal/domain/entity"
	"newssense/internal/repository"
)

// Service provides the article read use cases.
type Service struct {
	Repo      repository.ArticleRepository
	SavedRepo repository.SavedArticleRepository
}

// Feed returns at most repository.FeedLimit articles matching pref, newest first.
func (s *Service) Feed(ctx context.Context, pref entity.Preference) ([]*entity.Article, error) {
	articles, err := s.Repo.Feed(ctx, BuildFilter(pref))
	if err != nil {
		return nil, fmt.Errorf("feed articles: %w", err)
	}
	return articles, nil
}

// Get retrieves a single article by its ID.
// Returns ErrInvalidArticleID if the ID is not positive.
// Returns ErrArticleNotFound if the article does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Article, error) {
	if id <= 0 {
		return nil, ErrInvalidArticleID
	}

	article, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, ErrArticleNotFound
	}
	return article, nil
}

// Save adds an article to the user's saved list. added is false when it
// was already saved; saving twice is not an error.
func (s *Service) Save(ctx context.Context, userID string, articleID int64) (added bool, err error) {
	if _, err := s.Get(ctx, articleID); err != nil {
		return false, err
	}

	added, err = s.SavedRepo.Save(ctx, userID, articleID)
	if err != nil {
		return false, fmt.Errorf("save article: %w", err)
	}
	return added, nil
}

// Saved lists the user's saved articles in the order they were saved.
func (s *Service) Saved(ctx context.Context, userID string) ([]*entity.Article, error) {
	articles, err := s.SavedRepo.ListSaved(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved articles: %w", err)
	}
	return articles, nil
}
