// Package ingest turns candidate articles from a source into stored,
// sentiment-tagged articles, once immediately and then on a schedule.
package ingest

import (
	"context"
	"errors"
	"time"

	"newssense/internal/domain/entity"
)

var (
	// ErrStoreUnavailable wraps a store connectivity failure that aborted a batch.
	// Per-article failures never produce it.
	ErrStoreUnavailable = errors.New("article store unavailable")

	// ErrAlreadyStarted is returned by Scheduler.Start on a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// Candidate is an article offered for ingestion, before sentiment tagging.
type Candidate struct {
	Title       string
	Summary     string
	Content     string
	Source      string
	URL         string
	PublishedAt time.Time
	Topics      []string
	Keywords    []string
}

// CandidateSource produces a batch of candidates per ingestion run.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}

// CandidateSourceFunc adapts a function to CandidateSource.
type CandidateSourceFunc func(ctx context.Context) ([]Candidate, error)

// Candidates implements CandidateSource.
func (f CandidateSourceFunc) Candidates(ctx context.Context) ([]Candidate, error) {
	return f(ctx)
}

func (c Candidate) toArticle(s entity.Sentiment, now time.Time) *entity.Article {
	return &entity.Article{
		URL:         c.URL,
		Title:       c.Title,
		Summary:     c.Summary,
		Content:     c.Content,
		Source:      c.Source,
		PublishedAt: c.PublishedAt,
		Sentiment:   s,
		Topics:      c.Topics,
		Keywords:    c.Keywords,
		CreatedAt:   now,
	}
}
