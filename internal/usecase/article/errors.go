// Package article implements the read side of the news feed: the
// preference-filtered feed, single-article lookup, and saved articles.
package article

import "errors"

var (
	// ErrArticleNotFound maps to 404 on GET /api/news/{id} and on save.
	ErrArticleNotFound = errors.New("article not found")

	// ErrInvalidArticleID: ids are store-generated and start at 1. Maps to 400.
	ErrInvalidArticleID = errors.New("invalid article ID")
)
