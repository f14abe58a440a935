package templix

import (
	"github.com/hupe1980/templix/pattern"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	mask             *pattern.Mask
	affine           pattern.Affine
	centerDX         float64
	centerDY         float64
	minPeaks         int
	minPeaksSet      bool
}

// Option configures Indexer construction behavior.
type Option func(*options)

// WithLogger configures structured logging for match operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := templix.NewJSONLogger(slog.LevelInfo)
//	ix, _ := templix.NewIndexer(lib, templix.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &templix.BasicMetricsCollector{}
//	ix, _ := templix.NewIndexer(lib, templix.WithMetricsCollector(metrics))
//	// ... use ix ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithMask excludes detector pixel regions from scoring. Any peak whose
// bilinear stencil touches an excluded pixel is dropped from the
// correlation for that template.
//
// The mask is treated as frozen; build it fully before passing it in.
func WithMask(m *pattern.Mask) Option {
	return func(o *options) {
		o.mask = m
	}
}

// WithAffine applies an affine correction mapping template-frame detector
// coordinates onto the (possibly distorted) experimental detector before
// sampling. A correction that exactly undoes a detector distortion
// restores the undistorted correlation score.
func WithAffine(a pattern.Affine) Option {
	return func(o *options) {
		o.affine = a
	}
}

// WithCenterOffset shifts the pattern center used for projecting template
// peaks, in pixels. Applied before any affine correction.
func WithCenterOffset(dx, dy float64) Option {
	return func(o *options) {
		o.centerDX = dx
		o.centerDY = dy
	}
}

// WithMinPeaks sets the minimum number of peaks a template must place on
// valid (in-bounds, unmasked) pixels to receive a score; n must be
// positive. Templates below the threshold are skipped, so a successful
// Match may return fewer than n results.
//
// Without this option no template is skipped: templates with no peaks on
// valid pixels score 0 and stay ranked, keeping the result count at
// exactly min(n, library size).
func WithMinPeaks(n int) Option {
	return func(o *options) {
		o.minPeaks = n
		o.minPeaksSet = true
	}
}
