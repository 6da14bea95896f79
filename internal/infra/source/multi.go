package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newssense/internal/usecase/ingest"
)

// Named is a candidate source that can identify itself in logs.
type Named interface {
	ingest.CandidateSource
	Name() string
}

// Multi concatenates several sources. A failing part is logged and
// skipped; the batch fails only when every part fails.
type Multi struct {
	parts []Named
}

// NewMulti combines parts in order.
func NewMulti(parts ...Named) *Multi {
	return &Multi{parts: parts}
}

// Name implements Named.
func (m *Multi) Name() string { return "multi" }

// Candidates implements ingest.CandidateSource.
func (m *Multi) Candidates(ctx context.Context) ([]ingest.Candidate, error) {
	var (
		out  []ingest.Candidate
		errs []error
	)
	for _, p := range m.parts {
		batch, err := p.Candidates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.WarnContext(ctx, "candidate source failed, skipping",
				slog.String("source", p.Name()),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		out = append(out, batch...)
	}

	if len(m.parts) > 0 && len(errs) == len(m.parts) {
		return nil, fmt.Errorf("all candidate sources failed: %w", errors.Join(errs...))
	}
	return out, nil
}
