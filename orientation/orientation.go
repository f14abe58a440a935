// Package orientation provides 3D rotations and the sampled orientation
// grids the library builder iterates over.
package orientation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyGrid is returned when a grid configuration yields no rotations.
var ErrEmptyGrid = errors.New("orientation grid is empty")

// Rotation is a proper 3D rotation, stored as a row-major 3x3 matrix.
// The zero value is NOT a valid rotation; use Identity or a constructor.
type Rotation struct {
	M [9]float64
}

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{M: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewEuler builds a rotation from Bunge (ZXZ) Euler angles in degrees.
func NewEuler(phi1, phi, phi2 float64) Rotation {
	return RotZ(phi1).Compose(RotX(phi)).Compose(RotZ(phi2))
}

// RotX returns a rotation about the x axis by deg degrees.
func RotX(deg float64) Rotation {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Rotation{M: [9]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}}
}

// RotY returns a rotation about the y axis by deg degrees.
func RotY(deg float64) Rotation {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Rotation{M: [9]float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}}
}

// RotZ returns a rotation about the z (beam) axis by deg degrees.
func RotZ(deg float64) Rotation {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Rotation{M: [9]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}}
}

// Compose returns r·o, the rotation that applies o first, then r.
func (r Rotation) Compose(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += r.M[i*3+k] * o.M[k*3+j]
			}
			out.M[i*3+j] = sum
		}
	}
	return out
}

// Apply rotates the vector v.
func (r Rotation) Apply(v [3]float64) [3]float64 {
	return [3]float64{
		r.M[0]*v[0] + r.M[1]*v[1] + r.M[2]*v[2],
		r.M[3]*v[0] + r.M[4]*v[1] + r.M[5]*v[2],
		r.M[6]*v[0] + r.M[7]*v[1] + r.M[8]*v[2],
	}
}

// Mat returns the rotation as a gonum matrix (a copy).
func (r Rotation) Mat() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), r.M[:]...))
}

// String renders the rotation matrix row by row.
func (r Rotation) String() string {
	return fmt.Sprintf("Rot[%.4f %.4f %.4f; %.4f %.4f %.4f; %.4f %.4f %.4f]",
		r.M[0], r.M[1], r.M[2], r.M[3], r.M[4], r.M[5], r.M[6], r.M[7], r.M[8])
}

// GridConfig controls grid sampling around the beam direction (z axis).
// All angles are in degrees.
type GridConfig struct {
	// MaxTilt is the half-angle of the sampled tilt cone about x and y.
	// Zero means untilted (in-plane rotations only).
	MaxTilt float64
	// TiltStep is the tilt sampling resolution. Required if MaxTilt > 0.
	TiltStep float64
	// InPlaneStep is the sampling resolution of the rotation about the
	// beam axis over [0, 360). Zero means a single in-plane setting (0°).
	InPlaneStep float64
}

// DefaultGridConfig samples in-plane rotations at 1° with no tilt, the
// common setting for template matching of zone-axis patterns.
func DefaultGridConfig() GridConfig {
	return GridConfig{InPlaneStep: 1}
}

// Grid is an ordered, immutable sequence of rotations.
type Grid struct {
	rotations []Rotation
}

// NewGrid samples rotations per cfg. Ordering is deterministic: the
// in-plane angle varies slowest, then tilt about x, then tilt about y,
// each ascending.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if cfg.MaxTilt < 0 {
		return nil, fmt.Errorf("negative max tilt %g", cfg.MaxTilt)
	}
	if cfg.MaxTilt > 0 && cfg.TiltStep <= 0 {
		return nil, fmt.Errorf("max tilt %g requires a positive tilt step", cfg.MaxTilt)
	}
	if cfg.InPlaneStep < 0 {
		return nil, fmt.Errorf("negative in-plane step %g", cfg.InPlaneStep)
	}

	inPlane := []float64{0}
	if cfg.InPlaneStep > 0 {
		inPlane = inPlane[:0]
		for a := 0.0; a < 360; a += cfg.InPlaneStep {
			inPlane = append(inPlane, a)
		}
	}

	tilts := []float64{0}
	if cfg.MaxTilt > 0 {
		tilts = tilts[:0]
		for a := -cfg.MaxTilt; a <= cfg.MaxTilt+1e-9; a += cfg.TiltStep {
			tilts = append(tilts, a)
		}
	}

	var rotations []Rotation
	for _, psi := range inPlane {
		for _, tx := range tilts {
			for _, ty := range tilts {
				rotations = append(rotations, RotZ(psi).Compose(RotX(tx)).Compose(RotY(ty)))
			}
		}
	}
	if len(rotations) == 0 {
		return nil, ErrEmptyGrid
	}
	return &Grid{rotations: rotations}, nil
}

// FromRotations builds a grid from an explicit rotation list, preserving
// order. The list must be non-empty.
func FromRotations(rotations []Rotation) (*Grid, error) {
	if len(rotations) == 0 {
		return nil, ErrEmptyGrid
	}
	return &Grid{rotations: append([]Rotation(nil), rotations...)}, nil
}

// Len returns the number of sampled rotations.
func (g *Grid) Len() int { return len(g.rotations) }

// At returns the rotation at index i.
func (g *Grid) At(i int) Rotation { return g.rotations[i] }

// Rotations returns a copy of the sampled rotations.
func (g *Grid) Rotations() []Rotation {
	return append([]Rotation(nil), g.rotations...)
}
