// Package tagger provides model-backed sentiment taggers for the ingestion
// pipeline. They are optional; the keyword tagger is the default and the
// fallback whenever a model call fails.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"newssense/internal/domain/entity"
	"newssense/internal/observability/metrics"
	"newssense/internal/resilience/circuitbreaker"
	"newssense/internal/resilience/retry"
)

// ErrUnparseableAnswer is returned when the model replies with something
// other than one of the three sentiments.
var ErrUnparseableAnswer = errors.New("model answer is not a sentiment")

// maxInputChars bounds the text sent to a model, in bytes.
const maxInputChars = 4000

const prompt = "Classify the overall sentiment of the following news text. " +
	"Answer with exactly one word: positive, negative or neutral.\n\n%s"

// askFunc sends one prompt and returns the raw answer.
type askFunc func(ctx context.Context, prompt string) (string, error)

// Remote wraps a model call with a timeout, retry and a circuit breaker.
type Remote struct {
	name           string
	ask            askFunc
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	timeout        time.Duration
}

func newRemote(name string, timeout time.Duration, ask askFunc) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{
		name:           name,
		ask:            ask,
		circuitBreaker: circuitbreaker.New(circuitbreaker.SentimentAPIConfig(name)),
		retryConfig:    retry.SentimentAPIConfig(),
		timeout:        timeout,
	}
}

// Name implements sentiment.Named.
func (r *Remote) Name() string { return r.name }

// Tag implements sentiment.Tagger.
func (r *Remote) Tag(ctx context.Context, text string) (entity.Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text = truncate(text, maxInputChars)

	start := time.Now()
	defer func() { metrics.RecordTaggerDuration(r.name, time.Since(start)) }()

	var result entity.Sentiment
	retryErr := retry.WithBackoff(ctx, r.retryConfig, func() error {
		cbResult, err := r.circuitBreaker.Execute(func() (interface{}, error) {
			return r.classify(ctx, text)
		})
		if err != nil {
			if circuitbreaker.IsRejected(err) {
				slog.Warn("sentiment api circuit breaker open, request rejected",
					slog.String("service", r.name),
					slog.String("state", r.circuitBreaker.State().String()))
				return fmt.Errorf("%s api unavailable: circuit breaker open", r.name)
			}
			return err
		}
		result = cbResult.(entity.Sentiment)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("%s tag failed: %w", r.name, retryErr)
	}
	return result, nil
}

func (r *Remote) classify(ctx context.Context, text string) (entity.Sentiment, error) {
	answer, err := r.ask(ctx, fmt.Sprintf(prompt, text))
	if err != nil {
		return "", err
	}
	s, ok := entity.ParseSentiment(trimAnswer(answer))
	if !ok {
		slog.WarnContext(ctx, "sentiment model returned unexpected answer",
			slog.String("service", r.name),
			slog.String("answer", answer))
		return "", ErrUnparseableAnswer
	}
	return s, nil
}

// trimAnswer drops trailing punctuation such as "Positive.".
func trimAnswer(answer string) string {
	for len(answer) > 0 {
		last := answer[len(answer)-1]
		if last != '.' && last != '!' && last != '\n' && last != ' ' {
			break
		}
		answer = answer[:len(answer)-1]
	}
	return answer
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
