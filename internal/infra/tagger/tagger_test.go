package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newssense/internal/domain/entity"
	"newssense/internal/resilience/retry"
	"newssense/internal/usecase/sentiment"
)

/* ───────── ヘルパ ───────── */

func fastRetry(r *Remote) *Remote {
	r.retryConfig = retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return r
}

func openAIServer(t *testing.T, calls *atomic.Int32, status int, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func claudeServer(t *testing.T, calls *atomic.Int32, status int, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/messages", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "exactly one word")

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-haiku-4-5",
			"content":       []map[string]string{{"type": "text", "text": answer}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]int{"input_tokens": 10, "output_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

/* ───────── OpenAI ───────── */

func TestOpenAI_Tag(t *testing.T) {
	var calls atomic.Int32
	srv := openAIServer(t, &calls, http.StatusOK, "Positive.")

	tg := fastRetry(NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second}))
	got, err := tg.Tag(context.Background(), "Markets rally on good news")

	require.NoError(t, err)
	assert.Equal(t, entity.SentimentPositive, got)
	assert.Equal(t, "openai", sentiment.NameOf(tg))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := openAIServer(t, &calls, http.StatusInternalServerError, "")

	tg := fastRetry(NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second}))
	_, err := tg.Tag(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retry attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAI_UnparseableAnswer(t *testing.T) {
	var calls atomic.Int32
	srv := openAIServer(t, &calls, http.StatusOK, "It is hard to say")

	tg := fastRetry(NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second}))
	_, err := tg.Tag(context.Background(), "text")

	assert.True(t, errors.Is(err, ErrUnparseableAnswer), "got %v", err)
	assert.Equal(t, int32(1), calls.Load(), "a bad answer is not retried")
}

/* ───────── Claude ───────── */

func TestClaude_Tag(t *testing.T) {
	var calls atomic.Int32
	srv := claudeServer(t, &calls, http.StatusOK, "negative")

	tg := fastRetry(NewClaude(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second}))
	got, err := tg.Tag(context.Background(), "Storm causes trouble")

	require.NoError(t, err)
	assert.Equal(t, entity.SentimentNegative, got)
	assert.Equal(t, "claude", tg.Name())
}

func TestClaude_RetriesOverloaded(t *testing.T) {
	var calls atomic.Int32
	srv := claudeServer(t, &calls, http.StatusServiceUnavailable, "")

	tg := fastRetry(NewClaude(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second}))
	_, err := tg.Tag(context.Background(), "text")

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

/* ───────── 共通 ───────── */

func TestRemote_TruncatesInput(t *testing.T) {
	var seen int
	r := newRemote("fake", time.Second, func(_ context.Context, p string) (string, error) {
		seen = len(p)
		return "neutral", nil
	})

	got, err := r.Tag(context.Background(), strings.Repeat("x", maxInputChars*2))
	require.NoError(t, err)
	assert.Equal(t, entity.SentimentNeutral, got)
	assert.Less(t, seen, maxInputChars+len(prompt))
	assert.Equal(t, DefaultTimeout, newRemote("fake", 0, nil).timeout)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short text is kept", in: "calm", n: 10, want: "calm"},
		{name: "ascii is cut at n", in: "abcdef", n: 4, want: "abcd"},
		{name: "two-byte rune is not split", in: "cafés", n: 4, want: "caf"},
		{name: "three-byte runes", in: "日本語", n: 7, want: "日本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}

	long := truncate(strings.Repeat("é", maxInputChars), maxInputChars-1)
	assert.True(t, utf8.ValidString(long))
	assert.LessOrEqual(t, len(long), maxInputChars-1)
}

func TestTrimAnswer(t *testing.T) {
	assert.Equal(t, "Positive", trimAnswer("Positive.\n"))
	assert.Equal(t, "neutral", trimAnswer("neutral"))
	assert.Equal(t, "", trimAnswer("..."))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"keyword", Config{Provider: ProviderKeyword}, "keyword"},
		{"openai without key", Config{Provider: ProviderOpenAI}, "keyword"},
		{"openai", Config{Provider: ProviderOpenAI, APIKey: "k"}, "openai"},
		{"claude", Config{Provider: ProviderClaude, APIKey: "k"}, "claude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sentiment.NameOf(New(tt.cfg)))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TAGGER", "Claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("TAGGER_TIMEOUT", "3s")

	cfg := LoadConfig()
	assert.Equal(t, ProviderClaude, cfg.Provider)
	assert.Equal(t, "sk-ant", cfg.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Timeout)

	t.Setenv("TAGGER", "bogus")
	assert.Equal(t, ProviderKeyword, LoadConfig().Provider)
}
