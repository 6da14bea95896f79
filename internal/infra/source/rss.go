package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newssense/internal/observability/metrics"
	"newssense/internal/resilience/circuitbreaker"
	"newssense/internal/resilience/retry"
	"newssense/internal/usecase/ingest"
)

const (
	maxFeedSize = 10 * 1024 * 1024 // 10MB
	userAgent   = "NewsSenseBot/1.0"
)

// RSS turns one RSS or Atom feed into candidates.
type RSS struct {
	client         *http.Client
	feed           Feed
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	now            func() time.Time
}

// NewRSS returns a source for feed, fetched with client through retry and
// a circuit breaker.
func NewRSS(client *http.Client, feed Feed) *RSS {
	cbCfg := circuitbreaker.FeedFetchConfig()
	cbCfg.Name = "feed-fetch:" + feed.Name
	return &RSS{
		client:         client,
		feed:           feed,
		circuitBreaker: circuitbreaker.New(cbCfg),
		retryConfig:    retry.FeedFetchConfig(),
		now:            time.Now,
	}
}

// Name implements Named.
func (f *RSS) Name() string { return f.feed.Name }

// Candidates fetches the feed and maps its items.
func (f *RSS) Candidates(ctx context.Context) ([]ingest.Candidate, error) {
	var parsed *gofeed.Feed

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx)
		})
		if err != nil {
			if circuitbreaker.IsRejected(err) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("feed", f.feed.Name),
					slog.String("url", f.feed.URL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		parsed = cbResult.(*gofeed.Feed)
		return nil
	})
	if retryErr != nil {
		metrics.RecordSourceFetchError(f.feed.Name)
		return nil, fmt.Errorf("fetch feed %s: %w", f.feed.Name, retryErr)
	}

	out := make([]ingest.Candidate, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if c, ok := f.toCandidate(it); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *RSS) doFetch(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (f *RSS) toCandidate(it *gofeed.Item) (ingest.Candidate, bool) {
	title := strings.TrimSpace(it.Title)
	if title == "" || it.Link == "" {
		return ingest.Candidate{}, false
	}

	pubAt := f.now()
	if it.PublishedParsed != nil {
		pubAt = *it.PublishedParsed
	} else if it.UpdatedParsed != nil {
		pubAt = *it.UpdatedParsed
	}

	summary := StripHTML(it.Description)
	// Content優先、なければDescriptionを使用
	content := StripHTML(it.Content)
	if content == "" {
		content = summary
	}

	topics := appendUnique(nil, f.feed.Topics...)
	topics = appendUnique(topics, it.Categories...)

	keywords := make([]string, 0, len(topics)+1)
	for _, t := range topics {
		keywords = appendUnique(keywords, strings.ToLower(t))
	}
	keywords = appendUnique(keywords, "news")

	return ingest.Candidate{
		Title:       title,
		Summary:     summary,
		Content:     content,
		Source:      f.feed.Name,
		URL:         strings.TrimSpace(it.Link),
		PublishedAt: pubAt,
		Topics:      topics,
		Keywords:    keywords,
	}, true
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
