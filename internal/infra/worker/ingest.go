package worker

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"newssense/internal/infra/source"
	"newssense/internal/infra/tagger"
	"newssense/internal/repository"
	"newssense/internal/usecase/ingest"
	"newssense/internal/usecase/sentiment"
)

// NewHTTPClient returns the client used to fetch feeds. TLS 1.2+ is enforced.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// NewIngestService assembles the ingestion service: candidates come from
// the catalog at cfg.Catalog, sentiment from the tagger chosen by TAGGER,
// and articles are stored in repo.
func NewIngestService(cfg IngestConfig, repo repository.ArticleRepository, client *http.Client, logger *slog.Logger) (*ingest.Service, error) {
	catalog, err := source.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load ingest catalog: %w", err)
	}
	if client == nil {
		client = NewHTTPClient()
	}

	tag := tagger.New(tagger.LoadConfig())
	logger.Info("ingestion service configured",
		slog.Bool("synthetic", catalog.Synthetic.Enabled),
		slog.Int("feeds", len(catalog.EnabledFeeds())),
		slog.String("tagger", sentiment.NameOf(tag)),
		slog.Int("parallelism", cfg.Parallelism))

	return ingest.NewService(catalog.Build(client), repo, tag, cfg.Parallelism), nil
}
