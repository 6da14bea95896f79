package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newssense/internal/resilience/retry"
	"newssense/internal/usecase/ingest"
)

/* ────────────────────────────  Catalog  ──────────────────────────── */

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.True(t, c.Synthetic.Enabled)
	assert.Equal(t, 10, c.Synthetic.BatchSize)
	assert.Equal(t, []string{"CNN", "BBC", "Reuters", "AP News", "The New York Times"}, c.Synthetic.Sources)
	assert.Len(t, c.Synthetic.Topics, 7)
	assert.Empty(t, c.EnabledFeeds(), "feeds are opt-in")

	_, isSynthetic := c.Build(http.DefaultClient).(*Synthetic)
	assert.True(t, isSynthetic)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
synthetic:
  enabled: true
  batch_size: 3
  sources: [BBC]
  topics: [Science]
feeds:
  - name: Example
    url: https://example.com/rss
    enabled: true
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Synthetic.BatchSize)
	require.Len(t, c.EnabledFeeds(), 1)

	_, isMulti := c.Build(http.DefaultClient).(*Multi)
	assert.True(t, isMulti)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), def)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":         "synthetic: [",
		"nothing enabled":  "synthetic:\n  enabled: false\n",
		"zero batch":       "synthetic:\n  enabled: true\n  batch_size: 0\n  sources: [a]\n  topics: [b]\n",
		"no topics":        "synthetic:\n  enabled: true\n  batch_size: 1\n  sources: [a]\n",
		"feed without url": "feeds:\n  - name: x\n    enabled: true\n",
		"feed bad scheme":  "feeds:\n  - name: x\n    url: ftp://example.com\n    enabled: true\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

/* ────────────────────────────  Synthetic  ──────────────────────────── */

func TestSynthetic_Candidates(t *testing.T) {
	cfg := DefaultCatalog().Synthetic
	s := NewSynthetic(cfg)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	got, err := s.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 10)

	urlPattern := regexp.MustCompile(`^https://example\.com/news/[a-z0-9]{13}$`)
	seen := map[string]bool{}
	for _, c := range got {
		require.Len(t, c.Topics, 1)
		topic := c.Topics[0]
		assert.Contains(t, cfg.Topics, topic)
		assert.Contains(t, cfg.Sources, c.Source)
		assert.Equal(t, topic+" News: Important Development in "+topic+" Sector", c.Title)
		assert.Contains(t, c.Summary, "the "+strings.ToLower(topic)+" sector")
		assert.Contains(t, c.Content, "Analysts predict")
		assert.Equal(t, []string{strings.ToLower(topic), "news", "development"}, c.Keywords)
		assert.Regexp(t, urlPattern, c.URL)
		assert.False(t, c.PublishedAt.After(now))
		assert.True(t, c.PublishedAt.After(now.Add(-publishWindow-time.Second)))
		seen[c.URL] = true
	}
	assert.Len(t, seen, 10, "urls should be unique within a batch")
}

func TestSynthetic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSynthetic(DefaultCatalog().Synthetic).Candidates(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

/* ────────────────────────────  RSS  ──────────────────────────── */

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <item>
    <title>Rocket lands safely</title>
    <link>https://example.com/a</link>
    <description>&lt;p&gt;A &lt;b&gt;great&lt;/b&gt; success&lt;/p&gt;</description>
    <category>Space</category>
    <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://example.com/no-title</link>
  </item>
</channel>
</rss>`

func fastRSS(url string) *RSS {
	f := NewRSS(http.DefaultClient, Feed{Name: "Example", URL: url, Topics: []string{"Science"}, Enabled: true})
	f.retryConfig = retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return f
}

func TestRSS_Candidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	got, err := fastRSS(srv.URL).Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1, "items without a title are skipped")

	c := got[0]
	assert.Equal(t, "Rocket lands safely", c.Title)
	assert.Equal(t, "A great success", c.Summary)
	assert.Equal(t, "A great success", c.Content)
	assert.Equal(t, "Example", c.Source)
	assert.Equal(t, []string{"Science", "Space"}, c.Topics)
	assert.Equal(t, []string{"science", "space", "news"}, c.Keywords)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), c.PublishedAt.UTC())
}

func TestRSS_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	got, err := fastRSS(srv.URL).Candidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRSS_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastRSS(srv.URL).Candidates(context.Background())
	var httpErr *retry.HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "", StripHTML("  "))
	assert.Equal(t, "plain text", StripHTML("plain   text"))
	assert.Equal(t, "Hello world", StripHTML(`<div>Hello <script>x()</script><i>world</i></div>`))
}

/* ────────────────────────────  Multi  ──────────────────────────── */

type fakeSource struct {
	name  string
	batch []ingest.Candidate
	err   error
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) Candidates(context.Context) ([]ingest.Candidate, error) {
	return f.batch, f.err
}

func TestMulti_SkipsFailingPart(t *testing.T) {
	m := NewMulti(
		fakeSource{name: "a", batch: []ingest.Candidate{{URL: "https://example.com/1"}}},
		fakeSource{name: "b", err: errors.New("down")},
		fakeSource{name: "c", batch: []ingest.Candidate{{URL: "https://example.com/2"}}},
	)

	got, err := m.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/1", got[0].URL)
	assert.Equal(t, "https://example.com/2", got[1].URL)
}

func TestMulti_AllFail(t *testing.T) {
	boom := errors.New("down")
	m := NewMulti(fakeSource{name: "a", err: boom}, fakeSource{name: "b", err: boom})

	_, err := m.Candidates(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
