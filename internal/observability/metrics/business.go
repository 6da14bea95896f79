package metrics

import (
	"time"
)

// RecordCandidate counts one candidate with the given outcome
// (ResultStored, ResultDuplicate or ResultFailed).
func RecordCandidate(result string) {
	IngestCandidatesTotal.WithLabelValues(result).Inc()
}

// RecordCandidates counts n candidates with the same outcome.
func RecordCandidates(result string, n int) {
	if n <= 0 {
		return
	}
	IngestCandidatesTotal.WithLabelValues(result).Add(float64(n))
}

// RecordIngestRun observes the duration of one ingestion batch.
func RecordIngestRun(d time.Duration) {
	IngestRunDuration.Observe(d.Seconds())
}

// RecordSourceFetchError counts a failed fetch from a candidate source.
func RecordSourceFetchError(source string) {
	SourceFetchErrorsTotal.WithLabelValues(source).Inc()
}

// RecordTagged counts an article tagged by tagger.
func RecordTagged(tagger, sentiment string) {
	ArticlesTaggedTotal.WithLabelValues(tagger, sentiment).Inc()
}

// RecordTaggerFallback counts a model tagger failure answered by the keyword tagger.
func RecordTaggerFallback(tagger string) {
	TaggerFallbacksTotal.WithLabelValues(tagger).Inc()
}

// RecordTaggerDuration observes a model tagger call.
func RecordTaggerDuration(tagger string, d time.Duration) {
	TaggerDuration.WithLabelValues(tagger).Observe(d.Seconds())
}
