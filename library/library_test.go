package library

import (
	"math"
	"testing"

	"github.com/hupe1980/templix/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPhases(t *testing.T) []Phase {
	t.Helper()
	mk := func(n int, seed float32) []Template {
		tmpls := make([]Template, n)
		for i := range tmpls {
			tmpls[i] = Template{
				PeakX:     []float32{seed + float32(i), -seed},
				PeakY:     []float32{0, seed},
				Intensity: []float32{1, 0.5},
				Rotation:  orientation.RotZ(float64(i)),
			}
		}
		return tmpls
	}
	return []Phase{
		{Label: "ZB", Templates: mk(10, 1)},
		{Label: "WZ", Templates: mk(8, 2)},
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		phases []Phase
	}{
		{"NoPhases", nil},
		{"EmptyLabel", []Phase{{Label: "", Templates: []Template{{}}}}},
		{"NoTemplates", []Phase{{Label: "ZB"}}},
		{"DuplicateLabel", []Phase{
			{Label: "ZB", Templates: []Template{{}}},
			{Label: "ZB", Templates: []Template{{}}},
		}},
		{"MismatchedPeakSlices", []Phase{
			{Label: "ZB", Templates: []Template{{
				PeakX:     []float32{0, 1},
				PeakY:     []float32{0},
				Intensity: []float32{1, 0.5},
			}}},
		}},
		{"NonFiniteIntensity", []Phase{
			{Label: "ZB", Templates: []Template{{
				PeakX:     []float32{0},
				PeakY:     []float32{0},
				Intensity: []float32{float32(math.NaN())},
			}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.phases)
			require.Error(t, err)
		})
	}
}

func TestLibrary_GlobalIndexing(t *testing.T) {
	lib, err := New(testPhases(t))
	require.NoError(t, err)

	require.Equal(t, 18, lib.Len())
	require.Equal(t, 2, lib.NumPhases())
	assert.Equal(t, []string{"ZB", "WZ"}, lib.PhaseLabels())

	phase, oi, tmpl := lib.Entry(0)
	assert.Equal(t, "ZB", phase)
	assert.Equal(t, 0, oi)
	require.NotNil(t, tmpl)

	phase, oi, _ = lib.Entry(9)
	assert.Equal(t, "ZB", phase)
	assert.Equal(t, 9, oi)

	phase, oi, _ = lib.Entry(10)
	assert.Equal(t, "WZ", phase)
	assert.Equal(t, 0, oi)

	phase, oi, _ = lib.Entry(17)
	assert.Equal(t, "WZ", phase)
	assert.Equal(t, 7, oi)

	assert.Panics(t, func() { lib.Entry(18) })
	assert.Panics(t, func() { lib.Entry(-1) })
}

func TestLibrary_Each(t *testing.T) {
	lib, err := New(testPhases(t))
	require.NoError(t, err)

	var seen []int
	lib.Each(func(idx int, phase string, orientIdx int, tmpl *Template) bool {
		seen = append(seen, idx)

		wantPhase, wantOI, wantTmpl := lib.Entry(idx)
		assert.Equal(t, wantPhase, phase)
		assert.Equal(t, wantOI, orientIdx)
		assert.Equal(t, wantTmpl, tmpl)
		return true
	})

	require.Len(t, seen, 18)
	for i, idx := range seen {
		assert.Equal(t, i, idx)
	}

	// Early stop
	count := 0
	lib.Each(func(idx int, _ string, _ int, _ *Template) bool {
		count++
		return idx < 4
	})
	assert.Equal(t, 6, count)
}

func TestLibrary_PhaseByLabel(t *testing.T) {
	lib, err := New(testPhases(t))
	require.NoError(t, err)

	p, ok := lib.PhaseByLabel("WZ")
	require.True(t, ok)
	assert.Len(t, p.Templates, 8)

	_, ok = lib.PhaseByLabel("FCC")
	assert.False(t, ok)
}
