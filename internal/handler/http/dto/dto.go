// Package dto holds the JSON shapes the web client reads. Field names follow
// the client (`_id`, camelCase), not the Go types.
package dto

import (
	"time"

	"newssense/internal/domain/entity"
)

// Article is the JSON form of an article.
type Article struct {
	ID          int64     `json:"_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Sentiment   string    `json:"sentiment"`
	Topics      []string  `json:"topics"`
	Keywords    []string  `json:"keywords"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Preference is the JSON form of a user's preferences. The sets are never
// null on the wire.
type Preference struct {
	Topics   []string `json:"topics"`
	Sources  []string `json:"sources"`
	Keywords []string `json:"keywords"`
}

// User is the public view of an account; the password hash never appears.
type User struct {
	ID          string     `json:"_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Preferences Preference `json:"preferences"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromArticle converts an entity.Article.
func FromArticle(a *entity.Article) Article {
	return Article{
		ID:          a.ID,
		Title:       a.Title,
		Summary:     a.Summary,
		Content:     a.Content,
		Source:      a.Source,
		URL:         a.URL,
		PublishedAt: a.PublishedAt,
		Sentiment:   string(a.Sentiment),
		Topics:      nonNil(a.Topics),
		Keywords:    nonNil(a.Keywords),
		CreatedAt:   a.CreatedAt,
	}
}

// FromArticles converts a list; the result is never nil so it encodes as [].
func FromArticles(in []*entity.Article) []Article {
	out := make([]Article, 0, len(in))
	for _, a := range in {
		out = append(out, FromArticle(a))
	}
	return out
}

// FromPreference converts an entity.Preference.
func FromPreference(p entity.Preference) Preference {
	return Preference{
		Topics:   nonNil(p.Topics),
		Sources:  nonNil(p.Sources),
		Keywords: nonNil(p.Keywords),
	}
}

// FromUser converts an entity.User.
func FromUser(u *entity.User) User {
	return User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Preferences: FromPreference(u.Preferences),
		CreatedAt:   u.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
