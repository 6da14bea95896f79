package repository

import (
	"context"

	"newssense/internal/domain/entity"
)

// FeedLimit caps the number of articles returned by a feed query.
const FeedLimit = 30

// ArticleFilter is a composed feed query. Each non-empty set is one predicate;
// an article matches when it satisfies at least one active predicate.
type ArticleFilter struct {
	Topics   []string // article.topics intersects Topics
	Sources  []string // article.source is in Sources
	Keywords []string // full-text match on any keyword
	Limit    int
}

// IsEmpty reports whether the filter has no active predicate.
func (f ArticleFilter) IsEmpty() bool {
	return len(f.Topics) == 0 && len(f.Sources) == 0 && len(f.Keywords) == 0
}

// EffectiveLimit returns Limit clamped to (0, FeedLimit].
func (f ArticleFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > FeedLimit {
		return FeedLimit
	}
	return f.Limit
}

type ArticleRepository interface {
	// Get returns (nil, nil) when the article does not exist.
	Get(ctx context.Context, id int64) (*entity.Article, error)
	// Feed returns articles matching filter, newest first.
	Feed(ctx context.Context, filter ArticleFilter) ([]*entity.Article, error)
	// Create inserts the article unless its URL is already stored.
	// inserted is false for a duplicate URL; that is not an error.
	Create(ctx context.Context, article *entity.Article) (inserted bool, err error)
	// ExistsByURLBatch はバッチでURL存在チェックを行い、N+1問題を解消する
	ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error)
}
