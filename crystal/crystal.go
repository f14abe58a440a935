// Package crystal describes candidate crystal structures for diffraction
// simulation: a unit cell, an atomic basis and a phase label.
//
// A Structure is immutable once constructed. All validation happens in
// NewStructure; downstream consumers (the simulator, the library builder)
// can rely on a Structure being well formed.
package crystal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Cell holds unit cell parameters. Lengths are in Å, angles in degrees.
type Cell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
}

// Atom is one entry of the atomic basis. Coordinates are fractional.
type Atom struct {
	Element   string
	X, Y, Z   float64
	Occupancy float64
	// BIso is the isotropic Debye-Waller factor in Å². Zero disables
	// thermal damping for this atom.
	BIso float64
}

// StructureError indicates a malformed crystal definition.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type StructureError struct {
	Phase  string
	Reason string
	cause  error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("malformed structure %q: %s", e.Phase, e.Reason)
}

func (e *StructureError) Unwrap() error { return e.cause }

// Structure is an immutable crystal lattice description plus a phase label.
type Structure struct {
	phase string
	cell  Cell
	atoms []Atom

	// direct holds the lattice basis vectors as rows (Å).
	// reciprocal holds the reciprocal basis vectors as rows (1/Å,
	// crystallographic convention without the 2π factor).
	direct     *mat.Dense
	reciprocal *mat.Dense
}

// NewStructure validates the cell and basis and derives the direct and
// reciprocal lattice bases.
func NewStructure(phase string, cell Cell, atoms []Atom) (*Structure, error) {
	if phase == "" {
		return nil, &StructureError{Phase: phase, Reason: "empty phase label"}
	}
	if cell.A <= 0 || cell.B <= 0 || cell.C <= 0 {
		return nil, &StructureError{Phase: phase, Reason: fmt.Sprintf("non-positive cell length (a=%g b=%g c=%g)", cell.A, cell.B, cell.C)}
	}
	for _, angle := range []float64{cell.Alpha, cell.Beta, cell.Gamma} {
		if angle <= 0 || angle >= 180 {
			return nil, &StructureError{Phase: phase, Reason: fmt.Sprintf("cell angle %g outside (0, 180)", angle)}
		}
	}
	if len(atoms) == 0 {
		return nil, &StructureError{Phase: phase, Reason: "empty atomic basis"}
	}
	for i, a := range atoms {
		if _, ok := scatteringAmplitude(a.Element); !ok {
			return nil, &StructureError{Phase: phase, Reason: fmt.Sprintf("atom %d: unknown element %q", i, a.Element)}
		}
		if a.X < 0 || a.X >= 1 || a.Y < 0 || a.Y >= 1 || a.Z < 0 || a.Z >= 1 {
			return nil, &StructureError{Phase: phase, Reason: fmt.Sprintf("atom %d: fractional coordinate outside [0,1)", i)}
		}
		if a.Occupancy <= 0 || a.Occupancy > 1 {
			return nil, &StructureError{Phase: phase, Reason: fmt.Sprintf("atom %d: occupancy %g outside (0,1]", i, a.Occupancy)}
		}
		if a.BIso < 0 {
			return nil, &StructureError{Phase: phase, Reason: fmt.Sprintf("atom %d: negative Debye-Waller factor", i)}
		}
	}

	direct, err := directBasis(cell)
	if err != nil {
		return nil, &StructureError{Phase: phase, Reason: "degenerate unit cell", cause: err}
	}

	// B = (A⁻¹)ᵀ, rows are a*, b*, c*.
	var inv mat.Dense
	if err := inv.Inverse(direct); err != nil {
		return nil, &StructureError{Phase: phase, Reason: "singular lattice basis", cause: err}
	}
	reciprocal := mat.DenseCopyOf(inv.T())

	s := &Structure{
		phase:      phase,
		cell:       cell,
		atoms:      append([]Atom(nil), atoms...),
		direct:     direct,
		reciprocal: reciprocal,
	}
	return s, nil
}

// directBasis builds the direct lattice basis in the standard setting:
// a along x, b in the xy plane.
func directBasis(cell Cell) (*mat.Dense, error) {
	ca := math.Cos(cell.Alpha * math.Pi / 180)
	cb := math.Cos(cell.Beta * math.Pi / 180)
	cg := math.Cos(cell.Gamma * math.Pi / 180)
	sg := math.Sin(cell.Gamma * math.Pi / 180)

	v := 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
	if v <= 0 {
		return nil, fmt.Errorf("cell volume factor %g is not positive", v)
	}

	cz := math.Sqrt(v) / sg
	basis := mat.NewDense(3, 3, []float64{
		cell.A, 0, 0,
		cell.B * cg, cell.B * sg, 0,
		cell.C * cb, cell.C * (ca - cb*cg) / sg, cell.C * cz,
	})
	return basis, nil
}

// Phase returns the phase label.
func (s *Structure) Phase() string { return s.phase }

// Cell returns the unit cell parameters.
func (s *Structure) Cell() Cell { return s.cell }

// Atoms returns a copy of the atomic basis.
func (s *Structure) Atoms() []Atom {
	return append([]Atom(nil), s.atoms...)
}

// Volume returns the unit cell volume in Å³.
func (s *Structure) Volume() float64 {
	return mat.Det(s.direct)
}

// ReciprocalVector returns the reciprocal lattice vector g = h·a* + k·b* + l·c*
// in Cartesian coordinates (1/Å).
func (s *Structure) ReciprocalVector(h, k, l int) [3]float64 {
	var g [3]float64
	for j := 0; j < 3; j++ {
		g[j] = float64(h)*s.reciprocal.At(0, j) +
			float64(k)*s.reciprocal.At(1, j) +
			float64(l)*s.reciprocal.At(2, j)
	}
	return g
}

// DSpacing returns the interplanar spacing d_hkl in Å.
// It panics for (0,0,0), which has no associated plane family.
func (s *Structure) DSpacing(h, k, l int) float64 {
	if h == 0 && k == 0 && l == 0 {
		panic("crystal: d-spacing undefined for (0,0,0)")
	}
	g := s.ReciprocalVector(h, k, l)
	return 1 / math.Sqrt(g[0]*g[0]+g[1]*g[1]+g[2]*g[2])
}

// ReciprocalPoint is one reciprocal lattice point within a search radius.
type ReciprocalPoint struct {
	H, K, L int
	// G is the Cartesian reciprocal vector in the crystal frame (1/Å).
	G [3]float64
	// GMag is |G| in 1/Å. Zero only for the direct beam (0,0,0).
	GMag float64
}

// ReciprocalPointsWithin enumerates all reciprocal lattice points with
// |g| <= radius, excluding (0,0,0). The enumeration order is deterministic:
// h, then k, then l, each ascending.
func (s *Structure) ReciprocalPointsWithin(radius float64) []ReciprocalPoint {
	if radius <= 0 {
		return nil
	}

	// Conservative per-axis index bounds from the shortest projection of
	// each direct basis vector.
	hMax := int(math.Ceil(radius * s.cell.A))
	kMax := int(math.Ceil(radius * s.cell.B))
	lMax := int(math.Ceil(radius * s.cell.C))

	var pts []ReciprocalPoint
	for h := -hMax; h <= hMax; h++ {
		for k := -kMax; k <= kMax; k++ {
			for l := -lMax; l <= lMax; l++ {
				if h == 0 && k == 0 && l == 0 {
					continue
				}
				g := s.ReciprocalVector(h, k, l)
				gm := math.Sqrt(g[0]*g[0] + g[1]*g[1] + g[2]*g[2])
				if gm > radius {
					continue
				}
				pts = append(pts, ReciprocalPoint{H: h, K: k, L: l, G: g, GMag: gm})
			}
		}
	}
	return pts
}

// StructureFactor returns the kinematic structure factor magnitude |F_hkl|.
//
// The per-element scattering amplitude is a flat approximation (proportional
// to atomic number) damped by the isotropic Debye-Waller factor at
// s = 1/(2d). Good enough for relative template intensities; it is not a
// quantitative diffraction model.
func (s *Structure) StructureFactor(h, k, l int) float64 {
	var sSq float64
	if !(h == 0 && k == 0 && l == 0) {
		g := s.ReciprocalVector(h, k, l)
		gm2 := g[0]*g[0] + g[1]*g[1] + g[2]*g[2]
		sSq = gm2 / 4 // (1/2d)² = |g|²/4
	}

	var re, im float64
	for _, a := range s.atoms {
		f, _ := scatteringAmplitude(a.Element)
		f *= a.Occupancy * math.Exp(-a.BIso*sSq)
		phase := 2 * math.Pi * (float64(h)*a.X + float64(k)*a.Y + float64(l)*a.Z)
		re += f * math.Cos(phase)
		im += f * math.Sin(phase)
	}
	return math.Hypot(re, im)
}
