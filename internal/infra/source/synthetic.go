package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"newssense/internal/usecase/ingest"
)

const publishWindow = 7 * 24 * time.Hour

// Synthetic generates placeholder articles so the feed has content without
// any external news provider.
type Synthetic struct {
	cfg SyntheticConfig

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSynthetic returns a generator drawing from cfg's sources and topics.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	return &Synthetic{
		cfg: cfg,
		// #nosec G404 -- placeholder content, not security sensitive
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
}

// Name implements Named.
func (s *Synthetic) Name() string { return "synthetic" }

// Candidates returns BatchSize freshly generated candidates.
func (s *Synthetic) Candidates(ctx context.Context) ([]ingest.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]ingest.Candidate, 0, s.cfg.BatchSize)
	for i := 0; i < s.cfg.BatchSize; i++ {
		src := s.cfg.Sources[s.rnd.IntN(len(s.cfg.Sources))]
		topic := s.cfg.Topics[s.rnd.IntN(len(s.cfg.Topics))]
		lower := strings.ToLower(topic)

		out = append(out, ingest.Candidate{
			Title: fmt.Sprintf("%s News: Important Development in %s Sector", topic, topic),
			Summary: fmt.Sprintf("This is a summary of the important development in the %s sector. "+
				"The impact will be significant.", lower),
			Content: fmt.Sprintf("This is a detailed content of the important development in the %s sector. "+
				"The impact will be significant.\n\n"+
				"Experts say this is a game-changer for the industry. "+
				"Many companies are responding positively to this development.\n\n"+
				"Analysts predict this will lead to substantial growth in the coming months.", lower),
			Source:      src,
			URL:         "https://example.com/news/" + s.slug(),
			PublishedAt: now.Add(-time.Duration(s.rnd.Int64N(int64(publishWindow)))),
			Topics:      []string{topic},
			Keywords:    []string{lower, "news", "development"},
		})
	}
	return out, nil
}

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// slug returns a random 13 character base36 path segment.
func (s *Synthetic) slug() string {
	var b strings.Builder
	b.Grow(13)
	for i := 0; i < 13; i++ {
		b.WriteByte(slugAlphabet[s.rnd.IntN(len(slugAlphabet))])
	}
	return b.String()
}
