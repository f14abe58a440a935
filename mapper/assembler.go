package mapper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/internal/resource"
)

// MapSink receives the finished orientation map for rendering or
// export. Visualization lives outside this package; implementations
// bridge to whatever consumes the map.
type MapSink interface {
	RenderMap(ctx context.Context, m *OrientationMap) error
}

type options struct {
	topK       int
	workers    int
	logger     *templix.Logger
	metrics    templix.MetricsCollector
	controller *resource.Controller
	sink       templix.Sink
	mapSink    MapSink
}

// Option configures an Assembler.
type Option func(*options)

// WithTopK sets how many matches each cell retains. Default is 1.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithWorkers sets the worker pool size. Values below 1 fall back to
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger configures structured logging for assembly.
func WithLogger(logger *templix.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for assembly.
func WithMetricsCollector(mc templix.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithController throttles effective parallelism through a shared
// resource controller, so several assemblies (or an assembly next to a
// snapshot upload) can share one global worker budget.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithSink streams each matched cell's results to a sink as positions
// complete. Sink errors are logged and do not fail the cell.
func WithSink(s templix.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithMapSink renders the finished map once assembly completes. The
// sink is not invoked for cancelled assemblies; sink errors are logged
// and do not fail the map.
func WithMapSink(s MapSink) Option {
	return func(o *options) {
		o.mapSink = s
	}
}

// Assembler drives per-position indexation over a dataset and collects
// the results into an OrientationMap.
type Assembler struct {
	ix      *templix.Indexer
	opts    options
	logger  *templix.Logger
	metrics templix.MetricsCollector
}

// NewAssembler creates an Assembler around a ready indexer.
func NewAssembler(ix *templix.Indexer, optFns ...Option) (*Assembler, error) {
	if ix == nil {
		return nil, templix.NewConfigurationError("assembler", "nil indexer", nil)
	}

	opts := options{
		topK: 1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.topK < 1 {
		return nil, templix.NewConfigurationError("assembler", "top-k must be positive", nil)
	}

	logger := opts.logger
	if logger == nil {
		logger = templix.NoopLogger()
	}
	metrics := opts.metrics
	if metrics == nil {
		metrics = templix.NoopMetricsCollector{}
	}

	return &Assembler{
		ix:      ix,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Map indexes every scan position of ds and assembles the orientation
// map. Per-position failures are recorded in their cells; Map only
// returns an error for invalid input or cancellation.
//
// On cancellation no new positions are started, in-flight positions run
// to completion, and the partial map is returned together with the
// context error. Cells never started stay Unprocessed.
func (a *Assembler) Map(ctx context.Context, ds Dataset) (*OrientationMap, error) {
	if ds == nil {
		return nil, templix.NewConfigurationError("assembler", "nil dataset", nil)
	}
	width, height := ds.Dims()
	if width <= 0 || height <= 0 {
		return nil, templix.NewConfigurationError("assembler", "dataset has no scan positions", nil)
	}

	start := time.Now()
	m := newOrientationMap(width, height)

	pool := newWorkerPool(a.opts.workers)
	defer pool.close()

	// In-flight work must finish even after cancellation, so workers get
	// a context detached from ctx's cancel signal.
	runCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	var cancelErr error

submit:
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if err := ctx.Err(); err != nil {
				cancelErr = err
				break submit
			}

			x, y := x, y
			wg.Add(1)
			task := func() {
				defer wg.Done()
				a.indexPosition(runCtx, ds, m, x, y)
			}
			if err := pool.submit(ctx, task); err != nil {
				wg.Done()
				cancelErr = err
				break submit
			}
		}
	}

	wg.Wait()
	m.finalize()

	summary := m.Summary()
	a.metrics.RecordAssemble(summary.Positions, summary.Failed, time.Since(start))

	if cancelErr != nil {
		a.logger.Warn("map assembly cancelled",
			"matched", summary.Matched, "failed", summary.Failed, "positions", summary.Positions)
		return m, cancelErr
	}

	a.logger.Info("map assembled",
		"width", width, "height", height,
		"matched", summary.Matched, "failed", summary.Failed,
		"duration", time.Since(start))

	if a.opts.mapSink != nil {
		if err := a.opts.mapSink.RenderMap(runCtx, m); err != nil {
			a.logger.Error("map sink failed", "error", err)
		}
	}

	return m, nil
}

// indexPosition runs one position start to finish: the cell ends up
// Matched or Failed, never in between.
func (a *Assembler) indexPosition(ctx context.Context, ds Dataset, m *OrientationMap, x, y int) {
	if err := a.opts.controller.AcquireWorker(ctx); err != nil {
		m.setFailed(x, y, err)
		return
	}
	defer a.opts.controller.ReleaseWorker()

	pat, err := ds.At(x, y)
	if err != nil {
		m.setFailed(x, y, err)
		return
	}

	bytes := int64(len(pat.Data)) * 4
	if err := a.opts.controller.AcquireMemory(bytes); err != nil {
		if !errors.Is(err, resource.ErrMemoryLimitExceeded) {
			m.setFailed(x, y, err)
			return
		}
		// Over budget: run without a reservation instead of failing
		// the position.
		bytes = 0
	}
	defer a.opts.controller.ReleaseMemory(bytes)

	matches, err := a.ix.Match(ctx, pat, a.opts.topK)
	if err != nil {
		m.setFailed(x, y, err)
		return
	}

	m.setMatched(x, y, matches)

	if a.opts.sink != nil {
		if err := a.opts.sink.Render(ctx, matches); err != nil {
			a.logger.WithPosition(x, y).Warn("sink render failed", "error", err)
		}
	}
}
