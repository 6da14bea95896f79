package article

import (
	"newssense/internal/domain/entity"
	"newssense/internal/repository"
)

// BuildFilter turns a user's preferences into a feed query. Each non-empty
// preference set becomes one predicate; the store ORs them together. An
// empty preference yields an empty filter, i.e. the latest articles.
func BuildFilter(p entity.Preference) repository.ArticleFilter {
	p = p.Normalize()

	f := repository.ArticleFilter{Limit: repository.FeedLimit}
	if len(p.Topics) > 0 {
		f.Topics = p.Topics
	}
	if len(p.Sources) > 0 {
		f.Sources = p.Sources
	}
	if len(p.Keywords) > 0 {
		f.Keywords = p.Keywords
	}
	return f
}
