package simulate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/crystal"
	"github.com/hupe1980/templix/library"
	"github.com/hupe1980/templix/orientation"
	"github.com/hupe1980/templix/pattern"
)

func testConfig() Config {
	cfg := DefaultConfig(pattern.Calibration{Scale: 0.01, CenterX: 72, CenterY: 72})
	cfg.HalfSizePx = 72
	return cfg
}

func cubicStructure(t *testing.T, label string, a float64) *crystal.Structure {
	t.Helper()

	st, err := crystal.NewStructure(label, crystal.Cell{
		A: a, B: a, C: a,
		Alpha: 90, Beta: 90, Gamma: 90,
	}, []crystal.Atom{
		{Element: "Si", X: 0, Y: 0, Z: 0, Occupancy: 1},
	})
	require.NoError(t, err)

	return st
}

func TestWavelength(t *testing.T) {
	// Standard relativistic values for common accelerating voltages.
	assert.InDelta(t, 0.02508, Wavelength(200), 1e-4)
	assert.InDelta(t, 0.03701, Wavelength(100), 1e-4)
}

func TestNewSimulator_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroBeamEnergy", func(c *Config) { c.BeamEnergyKeV = 0 }},
		{"NegativeRadius", func(c *Config) { c.ReciprocalRadius = -1 }},
		{"ZeroExcitationError", func(c *Config) { c.MaxExcitationError = 0 }},
		{"NegativeHalfSize", func(c *Config) { c.HalfSizePx = -1 }},
		{"BadCalibration", func(c *Config) { c.Calibration.Scale = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewSimulator(cfg)
			var ce *templix.ConfigurationError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestSimulate_ZoneAxis(t *testing.T) {
	sim, err := NewSimulator(testConfig())
	require.NoError(t, err)

	st := cubicStructure(t, "SC", 5.43)
	tmpl := sim.Simulate(st, orientation.Identity())
	require.Greater(t, tmpl.Len(), 0)

	var maxI float32
	for i, v := range tmpl.Intensity {
		assert.GreaterOrEqual(t, v, float32(0))
		if v > maxI {
			maxI = v
		}
		// Friedel pair: the mirrored peak must exist with equal intensity.
		found := false
		for j := range tmpl.Intensity {
			if tmpl.PeakX[j] == -tmpl.PeakX[i] && tmpl.PeakY[j] == -tmpl.PeakY[i] {
				assert.InDelta(t, tmpl.Intensity[i], tmpl.Intensity[j], 1e-5)
				found = true
				break
			}
		}
		assert.True(t, found, "missing Friedel pair for peak %d", i)
	}
	assert.Equal(t, float32(1), maxI)
}

func TestSimulate_DirectBeam(t *testing.T) {
	cfg := testConfig()
	cfg.WithDirectBeam = true
	sim, err := NewSimulator(cfg)
	require.NoError(t, err)

	tmpl := sim.Simulate(cubicStructure(t, "SC", 5.43), orientation.Identity())
	require.Greater(t, tmpl.Len(), 1)
	assert.Equal(t, float32(0), tmpl.PeakX[0])
	assert.Equal(t, float32(0), tmpl.PeakY[0])
	assert.Equal(t, float32(1), tmpl.Intensity[0])
}

func TestSimulate_ExcitationCutoff(t *testing.T) {
	wide := testConfig()
	narrow := testConfig()
	narrow.MaxExcitationError = wide.MaxExcitationError / 10

	simWide, err := NewSimulator(wide)
	require.NoError(t, err)
	simNarrow, err := NewSimulator(narrow)
	require.NoError(t, err)

	st := cubicStructure(t, "SC", 5.43)
	rot := orientation.RotX(3)

	tmplWide := simWide.Simulate(st, rot)
	tmplNarrow := simNarrow.Simulate(st, rot)
	nWide := tmplWide.Len()
	nNarrow := tmplNarrow.Len()
	assert.Greater(t, nWide, nNarrow)
}

func TestBuilder_Determinism(t *testing.T) {
	st1 := cubicStructure(t, "ZB", 5.65)
	st2 := cubicStructure(t, "WZ", 4.3)

	grid, err := orientation.NewGrid(orientation.GridConfig{MaxTilt: 4, TiltStep: 2, InPlaneStep: 0})
	require.NoError(t, err)

	libs := make([]*library.Library, 0, 2)
	for _, workers := range []int{1, 4} {
		b, err := NewBuilder(testConfig(), WithWorkers(workers))
		require.NoError(t, err)
		require.NoError(t, b.Add(st1, grid))
		require.NoError(t, b.Add(st2, grid))

		lib, err := b.Build(context.Background())
		require.NoError(t, err)
		libs = append(libs, lib)
	}

	require.Equal(t, libs[0].Len(), libs[1].Len())
	for idx := 0; idx < libs[0].Len(); idx++ {
		p0, o0, t0 := libs[0].Entry(idx)
		p1, o1, t1 := libs[1].Entry(idx)
		assert.Equal(t, p0, p1)
		assert.Equal(t, o0, o1)
		assert.Equal(t, t0.PeakX, t1.PeakX)
		assert.Equal(t, t0.PeakY, t1.PeakY)
		assert.Equal(t, t0.Intensity, t1.Intensity)
		assert.Equal(t, t0.Rotation, t1.Rotation)
	}
}

func TestBuilder_Errors(t *testing.T) {
	b, err := NewBuilder(testConfig())
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	var ce *templix.ConfigurationError
	require.ErrorAs(t, err, &ce)

	var se *crystal.StructureError
	require.ErrorAs(t, b.Add(nil, nil), &se)

	st := cubicStructure(t, "SC", 5.43)
	err = b.Add(st, nil)
	require.ErrorIs(t, err, orientation.ErrEmptyGrid)
}

func TestBuilder_RecordsMetrics(t *testing.T) {
	metrics := &templix.BasicMetricsCollector{}
	b, err := NewBuilder(testConfig(), WithMetricsCollector(metrics))
	require.NoError(t, err)

	grid, err := orientation.NewGrid(orientation.GridConfig{MaxTilt: 2, TiltStep: 2, InPlaneStep: 0})
	require.NoError(t, err)
	require.NoError(t, b.Add(cubicStructure(t, "SC", 5.43), grid))

	lib, err := b.Build(context.Background())
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(lib.Len()), stats.SimulateCount)
}
