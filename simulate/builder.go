package simulate

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/crystal"
	"github.com/hupe1980/templix/library"
	"github.com/hupe1980/templix/orientation"
)

type builderOptions struct {
	workers          int
	logger           *templix.Logger
	metricsCollector templix.MetricsCollector
}

// BuilderOption configures library building.
type BuilderOption func(*builderOptions)

// WithWorkers sets the number of concurrent simulation workers.
// Values below 1 fall back to 1.
func WithWorkers(n int) BuilderOption {
	return func(o *builderOptions) {
		o.workers = n
	}
}

// WithLogger configures structured logging for the build.
func WithLogger(logger *templix.Logger) BuilderOption {
	return func(o *builderOptions) {
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for the build.
func WithMetricsCollector(mc templix.MetricsCollector) BuilderOption {
	return func(o *builderOptions) {
		o.metricsCollector = mc
	}
}

type entry struct {
	structure *crystal.Structure
	grid      *orientation.Grid
}

// Builder accumulates (structure, orientation grid) pairs and simulates
// the full diffraction library in one pass. Templates come out in phase
// registration order, then grid order, independent of worker scheduling.
type Builder struct {
	sim     *Simulator
	entries []entry
	opts    builderOptions
	logger  *templix.Logger
	metrics templix.MetricsCollector
}

// NewBuilder creates a Builder with the given simulation config.
func NewBuilder(cfg Config, optFns ...BuilderOption) (*Builder, error) {
	sim, err := NewSimulator(cfg)
	if err != nil {
		return nil, err
	}

	opts := builderOptions{
		workers: 1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.workers < 1 {
		opts.workers = 1
	}

	logger := opts.logger
	if logger == nil {
		logger = templix.NoopLogger()
	}
	metrics := opts.metricsCollector
	if metrics == nil {
		metrics = templix.NoopMetricsCollector{}
	}

	return &Builder{
		sim:     sim,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Add registers a candidate structure with its orientation grid. The grid
// must be non-empty; an empty grid would silently produce an unmatchable
// phase, so it fails here instead of at Build.
func (b *Builder) Add(st *crystal.Structure, grid *orientation.Grid) error {
	if st == nil {
		return &crystal.StructureError{Reason: "nil structure"}
	}
	if grid == nil || grid.Len() == 0 {
		return templix.NewConfigurationError("builder", "empty orientation grid for phase "+st.Phase(), orientation.ErrEmptyGrid)
	}
	b.entries = append(b.entries, entry{structure: st, grid: grid})
	return nil
}

// Build simulates every (structure, orientation) pair and assembles the
// library. The output is bit-identical for identical inputs regardless of
// the worker count.
func (b *Builder) Build(ctx context.Context) (*library.Library, error) {
	if len(b.entries) == 0 {
		return nil, templix.NewConfigurationError("builder", "no candidate structures registered", nil)
	}

	start := time.Now()
	phases := make([]library.Phase, len(b.entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.workers)

	for pi, e := range b.entries {
		phases[pi] = library.Phase{
			Label:     e.structure.Phase(),
			Templates: make([]library.Template, e.grid.Len()),
		}

		// Shared per-structure precomputation; each orientation only
		// rotates and projects.
		pts := e.structure.ReciprocalPointsWithin(b.sim.cfg.ReciprocalRadius)
		amps := make([]float64, len(pts))
		for i, p := range pts {
			amps[i] = e.structure.StructureFactor(p.H, p.K, p.L)
		}

		for oi := 0; oi < e.grid.Len(); oi++ {
			pi, oi, e := pi, oi, e
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				simStart := time.Now()
				tmpl := b.sim.simulate(pts, amps, e.grid.At(oi))
				phases[pi].Templates[oi] = tmpl
				b.metrics.RecordSimulate(tmpl.Len(), time.Since(simStart), nil)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	lib, err := library.New(phases)
	if err != nil {
		return nil, templix.NewConfigurationError("builder", "assembled library is invalid", err)
	}

	b.logger.WithTemplates(lib.Len()).
		Info("library built", "phases", lib.NumPhases(), "duration", time.Since(start))

	return lib, nil
}
