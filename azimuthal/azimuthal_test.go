package azimuthal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/pattern"
)

func testPattern(t *testing.T, fill func(x, y int) float32) pattern.Pattern {
	t.Helper()

	const size = 65
	data := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			data[y*size+x] = fill(x, y)
		}
	}
	pat, err := pattern.New(data, size, size, pattern.Calibration{
		Scale: 0.01, CenterX: 32, CenterY: 32,
	})
	require.NoError(t, err)

	return pat
}

func TestNewIntegrator_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"ZeroBins", Config{Bins: 0}},
		{"NegativeRMin", Config{Bins: 10, RMin: -1}},
		{"RMaxBelowRMin", Config{Bins: 10, RMin: 0.5, RMax: 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIntegrator(tt.cfg)
			var ce *templix.ConfigurationError
			require.ErrorAs(t, err, &ce)
		})
	}

	_, err := NewIntegrator(Config{Bins: 0})
	assert.ErrorIs(t, err, ErrInvalidBins)
}

func TestIntegrate_UniformPattern(t *testing.T) {
	ig, err := NewIntegrator(Config{Bins: 16})
	require.NoError(t, err)

	pat := testPattern(t, func(x, y int) float32 { return 2.5 })
	p, err := ig.Integrate(pat, nil)
	require.NoError(t, err)
	require.Len(t, p.Intensity, 16)

	for i, v := range p.Intensity {
		if p.Counts[i] == 0 {
			continue
		}
		assert.InDelta(t, 2.5, v, 1e-6, "bin %d", i)
	}
}

func TestIntegrate_RingLandsInItsBin(t *testing.T) {
	// Ring of radius 10 px = 0.1 1/Å.
	pat := testPattern(t, func(x, y int) float32 {
		r := math.Hypot(float64(x)-32, float64(y)-32)
		if math.Abs(r-10) < 0.5 {
			return 100
		}
		return 0
	})

	ig, err := NewIntegrator(Config{Bins: 20, RMax: 0.2})
	require.NoError(t, err)

	p, err := ig.Integrate(pat, nil)
	require.NoError(t, err)

	// The ring at 0.1 1/Å straddles bins 9 and 10 of 20 over [0, 0.2).
	peak := 0
	for i := range p.Intensity {
		if p.Intensity[i] > p.Intensity[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 0.1, p.Radius[peak], 0.011)
	assert.InDelta(t, 0.105, p.Radius[10], 1e-9)
}

func TestIntegrate_MaskExcludes(t *testing.T) {
	pat := testPattern(t, func(x, y int) float32 {
		if y < 32 {
			return 10
		}
		return 0
	})

	// Mask the hot upper half; only zeros remain.
	mask := pattern.NewMask()
	mask.ExcludeRect(0, 0, pat.Width, 32, pat.Width)

	ig, err := NewIntegrator(Config{Bins: 8})
	require.NoError(t, err)

	p, err := ig.Integrate(pat, mask)
	require.NoError(t, err)

	for i, v := range p.Intensity {
		assert.Equal(t, 0.0, v, "bin %d", i)
	}
}

func TestIntegrate_RadialWindow(t *testing.T) {
	pat := testPattern(t, func(x, y int) float32 { return 1 })

	ig, err := NewIntegrator(Config{Bins: 4, RMin: 0.05, RMax: 0.15})
	require.NoError(t, err)

	p, err := ig.Integrate(pat, nil)
	require.NoError(t, err)

	total := 0
	for _, c := range p.Counts {
		total += c
	}
	// Pixels inside 5 px or beyond 15 px from center are excluded.
	inWindow := 0
	for y := 0; y < pat.Height; y++ {
		for x := 0; x < pat.Width; x++ {
			r := math.Hypot(float64(x)-32, float64(y)-32) * 0.01
			if r >= 0.05 && r < 0.15 {
				inWindow++
			}
		}
	}
	assert.Equal(t, inWindow, total)
}
