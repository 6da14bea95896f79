// Package resilience groups the fault-tolerance helpers used around
// ingestion: circuit breakers for the database, RSS feeds and model-backed
// sentiment taggers, and retry with exponential backoff for feed downloads
// and model calls.
//
//	cb := circuitbreaker.New(circuitbreaker.FeedFetchConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetch(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.FeedFetchConfig(), func() error {
//	    return download(ctx)
//	})
package resilience
