// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, User and Preference, along with
// their validation rules and domain-specific errors.
package entity

import (
	"strings"
	"time"
)

// Sentiment is the coarse tone assigned to an article at ingestion time.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// IsValid reports whether s is one of the three known sentiments.
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// ParseSentiment converts free-form text (e.g. a model answer) into a Sentiment.
// Anything unrecognised is reported as ok=false.
func ParseSentiment(raw string) (Sentiment, bool) {
	s := Sentiment(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// Article represents an ingested news article.
// The URL is the article's identity; the store rejects duplicates.
// Articles are immutable once stored.
type Article struct {
	ID          int64
	URL         string
	Title       string
	Summary     string
	Content     string
	Source      string
	PublishedAt time.Time
	Sentiment   Sentiment
	Topics      []string
	Keywords    []string
	CreatedAt   time.Time
}

// Validate checks the fields required to persist an article.
func (a *Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := ValidateURL(a.URL); err != nil {
		return err
	}
	if a.Sentiment != "" && !a.Sentiment.IsValid() {
		return &ValidationError{Field: "sentiment", Message: "unknown sentiment " + string(a.Sentiment)}
	}
	return nil
}
