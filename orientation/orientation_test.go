package orientation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotZ_Apply(t *testing.T) {
	r := RotZ(90)
	got := r.Apply([3]float64{1, 0, 0})
	assert.InDelta(t, 0, got[0], 1e-12)
	assert.InDelta(t, 1, got[1], 1e-12)
	assert.InDelta(t, 0, got[2], 1e-12)
}

func TestRotations_PreserveNorm(t *testing.T) {
	v := [3]float64{0.3, -1.2, 2.5}
	want := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])

	for _, r := range []Rotation{
		Identity(),
		RotX(33), RotY(-71), RotZ(145),
		NewEuler(10, 20, 30),
		RotZ(45).Compose(RotX(30)),
	} {
		got := r.Apply(v)
		norm := math.Sqrt(got[0]*got[0] + got[1]*got[1] + got[2]*got[2])
		assert.InDelta(t, want, norm, 1e-12)
	}
}

func TestCompose_Order(t *testing.T) {
	// Rz(90)·Rx(90) applied to z: Rx first sends z to -y, then Rz sends
	// -y to x.
	r := RotZ(90).Compose(RotX(90))
	got := r.Apply([3]float64{0, 0, 1})
	assert.InDelta(t, 1, got[0], 1e-12)
	assert.InDelta(t, 0, got[1], 1e-12)
	assert.InDelta(t, 0, got[2], 1e-12)
}

func TestNewGrid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     GridConfig
		wantLen int
		wantErr bool
	}{
		{"Default", DefaultGridConfig(), 360, false},
		{"InPlane90", GridConfig{InPlaneStep: 90}, 4, false},
		{"TiltOnly", GridConfig{MaxTilt: 2, TiltStep: 1}, 25, false},
		{"TiltAndInPlane", GridConfig{MaxTilt: 1, TiltStep: 1, InPlaneStep: 180}, 18, false},
		{"Untilted", GridConfig{}, 1, false},
		{"NegativeTilt", GridConfig{MaxTilt: -1}, 0, true},
		{"MissingTiltStep", GridConfig{MaxTilt: 5}, 0, true},
		{"NegativeInPlane", GridConfig{InPlaneStep: -1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, g.Len())
		})
	}
}

func TestNewGrid_Deterministic(t *testing.T) {
	cfg := GridConfig{MaxTilt: 2, TiltStep: 0.5, InPlaneStep: 45}

	a, err := NewGrid(cfg)
	require.NoError(t, err)
	b, err := NewGrid(cfg)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.At(i), b.At(i))
	}
}

func TestFromRotations(t *testing.T) {
	_, err := FromRotations(nil)
	require.ErrorIs(t, err, ErrEmptyGrid)

	rots := []Rotation{Identity(), RotZ(10)}
	g, err := FromRotations(rots)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	// The grid keeps its own copy.
	rots[0] = RotZ(99)
	assert.Equal(t, Identity(), g.At(0))
}
