// Command diagnose_feeds checks every RSS feed in the ingestion catalog,
// enabled or not, and writes a text summary plus feed_diagnostic_report.json.
//
//	go run ./scripts/diagnose_feeds.go [-catalog path/to/catalog.yaml]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"newssense/internal/infra/source"
)

// FeedDiagnostic represents the diagnostic result for a single feed
type FeedDiagnostic struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Enabled      bool   `json:"enabled"`
	Status       string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT"
	HTTPCode     int    `json:"http_code,omitempty"`
	ItemCount    int    `json:"item_count"`
	LatestDate   string `json:"latest_date,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	FeedType     string `json:"feed_type,omitempty"` // "rss", "atom", "json"
	ResponseTime int64  `json:"response_time_ms"`
}

func main() {
	catalogPath := flag.String("catalog", os.Getenv("INGEST_CATALOG"), "catalog YAML (default: built-in)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-feed timeout")
	flag.Parse()

	catalog, err := source.LoadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	log.Printf("Diagnosing %d feeds...\n", len(catalog.Feeds))

	client := &http.Client{Timeout: *timeout}
	diagnostics := make([]FeedDiagnostic, 0, len(catalog.Feeds))
	for i, feed := range catalog.Feeds {
		log.Printf("[%d/%d] Diagnosing: %s", i+1, len(catalog.Feeds), feed.Name)
		diag := diagnoseFeed(client, feed, *timeout)
		diagnostics = append(diagnostics, diag)

		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)
	}

	printReport(diagnostics)
	generateJSONReport(diagnostics)
}

func diagnoseFeed(client *http.Client, feed source.Feed, timeout time.Duration) FeedDiagnostic {
	diag := FeedDiagnostic{Name: feed.Name, URL: feed.URL, Enabled: feed.Enabled}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "NewsSense-Diagnostic/1.0"

	start := time.Now()
	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	diag.ResponseTime = time.Since(start).Milliseconds()

	if err != nil {
		var httpErr gofeed.HTTPError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("Request timeout after %v", timeout)
		case errors.As(err, &httpErr):
			diag.Status = "HTTP_ERROR"
			diag.HTTPCode = httpErr.StatusCode
			diag.ErrorMessage = httpErr.Status
		default:
			diag.Status = "PARSE_ERROR"
			diag.ErrorMessage = err.Error()
		}
		return diag
	}

	diag.HTTPCode = http.StatusOK
	diag.FeedType = parsed.FeedType
	diag.ItemCount = len(parsed.Items)
	if diag.ItemCount == 0 {
		diag.Status = "EMPTY"
		diag.ErrorMessage = "Feed has no items"
		return diag
	}
	if first := parsed.Items[0]; first.PublishedParsed != nil {
		diag.LatestDate = first.PublishedParsed.UTC().Format(time.RFC3339)
	} else {
		diag.LatestDate = first.Published
	}

	diag.Status = "OK"
	return diag
}

func printReport(diagnostics []FeedDiagnostic) {
	var okCount int
	for _, d := range diagnostics {
		if d.Status == "OK" {
			okCount++
		}
	}

	fmt.Println("===============================================")
	fmt.Println("Feed Diagnostic Report")
	fmt.Printf("Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Printf("Working: %d / %d\n", okCount, len(diagnostics))
	fmt.Println("===============================================")

	for _, d := range diagnostics {
		fmt.Printf("%-8s %s (enabled=%t)\n", d.Status, d.Name, d.Enabled)
		fmt.Printf("  URL: %s\n", d.URL)
		if d.Status == "OK" {
			fmt.Printf("  Type: %s | Items: %d | Latest: %s | %dms\n", d.FeedType, d.ItemCount, d.LatestDate, d.ResponseTime)
		} else {
			fmt.Printf("  Error: %s | HTTP: %d | %dms\n", d.ErrorMessage, d.HTTPCode, d.ResponseTime)
		}
	}
}

func generateJSONReport(diagnostics []FeedDiagnostic) {
	f, err := os.Create("feed_diagnostic_report.json")
	if err != nil {
		log.Printf("Failed to create JSON report: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close JSON report file: %v", err)
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(diagnostics); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}

	log.Println("JSON report generated: feed_diagnostic_report.json")
}
