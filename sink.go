package templix

import (
	"context"
)

// Sink receives match results for rendering or export. Implementations
// live outside this core (plotting, crystal-map writers); the pipeline
// only guarantees the result contract.
type Sink interface {
	// Render consumes the matches for one pattern. Matches are sorted by
	// descending score and must not be mutated.
	Render(ctx context.Context, matches []Match) error
}

// NoopSink discards all results.
type NoopSink struct{}

// Render implements Sink.
func (NoopSink) Render(context.Context, []Match) error { return nil }

// LogSink logs each result batch at debug level. Useful when wiring up a
// pipeline before a real renderer exists.
type LogSink struct {
	Logger *Logger
}

// Render implements Sink.
func (s LogSink) Render(_ context.Context, matches []Match) error {
	for i, m := range matches {
		s.Logger.WithPhase(m.Phase).Debug("match",
			"rank", i,
			"orientation", m.OrientationIndex,
			"score", m.Score,
		)
	}
	return nil
}
