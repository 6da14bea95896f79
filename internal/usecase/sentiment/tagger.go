// Package sentiment classifies article text as positive, negative or neutral.
package sentiment

import (
	"context"
	"strings"

	"newssense/internal/domain/entity"
)

// Tagger assigns a sentiment to a piece of text.
// Implementations backed by a remote model may fail; the keyword tagger never does.
type Tagger interface {
	Tag(ctx context.Context, text string) (entity.Sentiment, error)
}

var (
	positiveWords = []string{"good", "great", "excellent", "positive", "success", "happy"}
	negativeWords = []string{"bad", "terrible", "negative", "fail", "sad", "trouble", "problem"}
)

// Tag classifies text by counting which lexicon words it contains.
// Each word counts once regardless of how often it appears, matching is by
// substring ("sad" matches "sadly"), and a tie is neutral.
func Tag(text string) entity.Sentiment {
	lower := strings.ToLower(text)

	pos := countPresent(lower, positiveWords)
	neg := countPresent(lower, negativeWords)

	switch {
	case pos > neg:
		return entity.SentimentPositive
	case neg > pos:
		return entity.SentimentNegative
	default:
		return entity.SentimentNeutral
	}
}

func countPresent(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// KeywordTagger is the lexicon-based Tagger. It is the default and the
// fallback for model-backed taggers.
type KeywordTagger struct{}

// Tag implements Tagger. It never returns an error.
func (KeywordTagger) Tag(_ context.Context, text string) (entity.Sentiment, error) {
	return Tag(text), nil
}

// Name implements Named.
func (KeywordTagger) Name() string { return "keyword" }

// Named is implemented by taggers that label their metrics.
type Named interface {
	Name() string
}

// NameOf returns t's label, or "custom" for unnamed taggers.
func NameOf(t Tagger) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// Input builds the text that is classified for an article.
func Input(title, summary string) string {
	return title + " " + summary
}
