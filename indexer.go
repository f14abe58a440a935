package templix

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/templix/internal/topn"
	"github.com/hupe1980/templix/library"
	"github.com/hupe1980/templix/orientation"
	"github.com/hupe1980/templix/pattern"
)

// Match is one scored library entry: the phase label, the orientation
// (both the grid index and the rotation itself) and the normalized
// correlation score.
type Match struct {
	Phase            string
	OrientationIndex int
	Rotation         orientation.Rotation
	Score            float32
}

// Indexer scores experimental diffraction patterns against every template
// of an immutable library and returns the best matches.
//
// An Indexer is safe for concurrent use: it never mutates the library or
// its own configuration after construction.
type Indexer struct {
	lib     *library.Library
	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// NewIndexer creates an Indexer over the given library.
//
// A nil or empty library is a ConfigurationError: the indexer is built
// once per library and an indexer that can never match anything is a
// caller bug, not a runtime condition.
func NewIndexer(lib *library.Library, optFns ...Option) (*Indexer, error) {
	if lib == nil || lib.Len() == 0 {
		return nil, &ConfigurationError{
			Component: "indexer",
			Reason:    "diffraction library is empty",
			cause:     library.ErrEmpty,
		}
	}

	opts := options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.minPeaksSet && opts.minPeaks < 1 {
		return nil, &ConfigurationError{
			Component: "indexer",
			Reason:    fmt.Sprintf("minimum peak count %d must be positive", opts.minPeaks),
		}
	}

	logger := opts.logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := opts.metricsCollector
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	return &Indexer{
		lib:     lib,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Library returns the indexer's library.
func (ix *Indexer) Library() *library.Library { return ix.lib }

// Match scores pat against every template and returns the n best matches
// sorted by descending score. Equal scores keep library insertion order
// (phase registration order, then orientation grid order).
//
// n must be positive; a larger n than the library size is clamped, so a
// successful match has exactly min(n, library size) entries. Templates
// whose peaks all land off-detector or under the mask score 0 and stay
// ranked; only a WithMinPeaks threshold removes templates from the
// result.
//
// Match returns ErrNoMatch when the pattern holds no finite unmasked
// intensity, or a WithMinPeaks threshold eliminated every template.
// Callers assembling a map treat that as a per-position failure rather
// than a fatal error.
func (ix *Indexer) Match(ctx context.Context, pat pattern.Pattern, n int) ([]Match, error) {
	start := time.Now()
	matches, err := ix.match(ctx, pat, n)
	ix.metrics.RecordMatch(n, time.Since(start), err)
	if err != nil {
		ix.logger.WithN(n).Error("match failed", "error", err)
		return nil, err
	}

	ix.logger.WithN(n).WithTemplates(ix.lib.Len()).
		Debug("match complete", "best", matches[0].Score, "duration", time.Since(start))

	return matches, nil
}

func (ix *Indexer) match(ctx context.Context, pat pattern.Pattern, n int) ([]Match, error) {
	if n <= 0 {
		return nil, &InvalidArgumentError{Name: "n", Value: n, cause: ErrInvalidN}
	}
	if n > ix.lib.Len() {
		n = ix.lib.Len()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !pat.HasFinite(ix.opts.mask) {
		return nil, fmt.Errorf("%w: pattern has no finite unmasked intensity", ErrNoMatch)
	}

	collector := topn.New(n)

	ix.lib.Each(func(idx int, _ string, _ int, tmpl *library.Template) bool {
		if score, ok := ix.score(pat, tmpl); ok {
			collector.Push(topn.Item{Ref: uint32(idx), Score: score})
		}
		return true
	})

	if collector.Len() == 0 {
		return nil, fmt.Errorf("%w: every template fell below %d valid peaks", ErrNoMatch, ix.opts.minPeaks)
	}

	items := collector.Drain()
	matches := make([]Match, len(items))
	for i, item := range items {
		phase, oi, tmpl := ix.lib.Entry(int(item.Ref))
		matches[i] = Match{
			Phase:            phase,
			OrientationIndex: oi,
			Rotation:         tmpl.Rotation,
			Score:            item.Score,
		}
	}

	return matches, nil
}

// score computes the normalized cross-correlation between one template and
// the pattern: template intensities against experimental intensities
// sampled at the projected peak positions, divided by both norms. The
// result lies in [-1, 1]; a noise-free self-match scores exactly 1.
func (ix *Indexer) score(pat pattern.Pattern, tmpl *library.Template) (float32, bool) {
	cx := pat.Calibration.CenterX + ix.opts.centerDX
	cy := pat.Calibration.CenterY + ix.opts.centerDY

	var dot, tn, en float64
	valid := 0

	for i := range tmpl.Intensity {
		x := cx + float64(tmpl.PeakX[i])
		y := cy + float64(tmpl.PeakY[i])
		if !ix.opts.affine.IsZero() {
			x, y = ix.opts.affine.Apply(x, y)
		}

		v, ok := pat.Sample(x, y, ix.opts.mask)
		if !ok {
			continue
		}
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}

		t := float64(tmpl.Intensity[i])
		dot += t * f
		tn += t * t
		en += f * f
		valid++
	}

	if ix.opts.minPeaks > 0 && valid < ix.opts.minPeaks {
		return 0, false
	}
	if valid == 0 || tn == 0 || en == 0 {
		// No usable overlap between template and signal: zero
		// correlation, but still a ranked result.
		return 0, true
	}

	score := dot / (math.Sqrt(tn) * math.Sqrt(en))
	// Guard against rounding drift past the analytic bound.
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}

	return float32(score), true
}
