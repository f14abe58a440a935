package pattern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCal() Calibration {
	return Calibration{Scale: 0.01, CenterX: 1, CenterY: 1}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name          string
		data          []float32
		width, height int
		cal           Calibration
	}{
		{"ZeroWidth", []float32{}, 0, 4, testCal()},
		{"NegativeHeight", []float32{}, 4, -1, testCal()},
		{"LengthMismatch", make([]float32, 5), 2, 2, testCal()},
		{"BadCalibration", make([]float32, 4), 2, 2, Calibration{Scale: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.data, tt.width, tt.height, tt.cal)
			require.Error(t, err)
		})
	}
}

func TestPattern_Sample(t *testing.T) {
	// 3x3 ramp: value = x + 3*y
	data := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8}
	p, err := New(data, 3, 3, testCal())
	require.NoError(t, err)

	tests := []struct {
		name   string
		x, y   float64
		want   float32
		wantOK bool
	}{
		{"Exact", 1, 1, 4, true},
		{"MidX", 0.5, 0, 0.5, true},
		{"MidY", 0, 0.5, 1.5, true},
		{"Center", 0.5, 0.5, 2, true},
		{"Corner", 2, 2, 8, true},
		{"OffLeft", -0.1, 0, 0, false},
		{"OffBottom", 0, 2.1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Sample(tt.x, tt.y, nil)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestPattern_SampleMasked(t *testing.T) {
	data := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8}
	p, err := New(data, 3, 3, testCal())
	require.NoError(t, err)

	mask := NewMask()
	mask.ExcludePixel(1, 1, 3)

	// Any sample whose bilinear stencil touches (1,1) fails.
	_, ok := p.Sample(1, 1, mask)
	assert.False(t, ok)
	_, ok = p.Sample(0.5, 0.5, mask)
	assert.False(t, ok)

	// Samples away from the excluded pixel still work.
	v, ok := p.Sample(2, 0, mask)
	require.True(t, ok)
	assert.InDelta(t, 2, v, 1e-6)
}

func TestPattern_HasFinite(t *testing.T) {
	nan := float32(math.NaN())
	p, err := New([]float32{nan, nan, nan, 1}, 2, 2, testCal())
	require.NoError(t, err)
	assert.True(t, p.HasFinite(nil))

	mask := NewMask()
	mask.ExcludePixel(1, 1, 2)
	assert.False(t, p.HasFinite(mask))

	allNaN, err := New([]float32{nan, nan}, 2, 1, testCal())
	require.NoError(t, err)
	assert.False(t, allNaN.HasFinite(nil))
}

func TestMask_Regions(t *testing.T) {
	m := NewMask()
	m.ExcludeRect(1, 1, 3, 3, 4)
	assert.Equal(t, uint64(4), m.Count())
	assert.True(t, m.Excluded(1, 1, 4))
	assert.True(t, m.Excluded(2, 2, 4))
	assert.False(t, m.Excluded(0, 0, 4))
	assert.False(t, m.Excluded(3, 3, 4))

	c := NewMask()
	c.ExcludeCircle(2, 2, 1, 5, 5)
	// center plus the 4-neighborhood
	assert.Equal(t, uint64(5), c.Count())
	assert.True(t, c.Excluded(2, 2, 5))
	assert.True(t, c.Excluded(1, 2, 5))
	assert.False(t, c.Excluded(1, 1, 5))

	clone := c.Clone()
	clone.ExcludePixel(0, 0, 5)
	assert.Equal(t, uint64(5), c.Count())
	assert.Equal(t, uint64(6), clone.Count())
}

func TestAffine(t *testing.T) {
	id := IdentityAffine()
	x, y := id.Apply(3, -2)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, -2.0, y)

	tr := Translation(1, 2)
	x, y = tr.Apply(3, -2)
	assert.Equal(t, 4.0, x)
	assert.Equal(t, 0.0, y)

	// 90° rotation
	rot := NewAffine(0, -1, 1, 0, 0, 0)
	x, y = rot.Apply(1, 0)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)

	// Compose: translate after rotate
	both := tr.Compose(rot)
	x, y = both.Apply(1, 0)
	assert.InDelta(t, 1, x, 1e-12)
	assert.InDelta(t, 3, y, 1e-12)

	inv, err := both.Inverse()
	require.NoError(t, err)
	x, y = inv.Apply(x, y)
	assert.InDelta(t, 1, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	_, err = NewAffine(1, 1, 1, 1, 0, 0).Inverse()
	require.Error(t, err)

	var zero Affine
	assert.True(t, zero.IsZero())
	x, y = zero.Apply(5, 6)
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 6.0, y)
}
