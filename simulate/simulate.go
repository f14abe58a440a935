// Package simulate builds diffraction template libraries by kinematic
// simulation: reciprocal lattice enumeration, an excitation-error cutoff
// against the flat Ewald sphere, and calibrated projection onto the
// detector plane.
package simulate

import (
	"math"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/crystal"
	"github.com/hupe1980/templix/internal/floats"
	"github.com/hupe1980/templix/library"
	"github.com/hupe1980/templix/orientation"
	"github.com/hupe1980/templix/pattern"
)

// Config holds the global simulation parameters. All fields are explicit;
// there is no hidden process-wide state.
type Config struct {
	// BeamEnergyKeV is the accelerating voltage in keV.
	BeamEnergyKeV float64

	// ReciprocalRadius bounds the reciprocal lattice enumeration in 1/Å.
	ReciprocalRadius float64

	// MaxExcitationError is the cutoff on the deviation from the exact
	// Bragg condition in 1/Å. Points further from the Ewald sphere are
	// dropped.
	MaxExcitationError float64

	// ShapeFactorWidth controls how fast intensity falls off with
	// excitation error (Lorentzian half-width, 1/Å). Zero defaults to
	// MaxExcitationError.
	ShapeFactorWidth float64

	// Calibration maps reciprocal coordinates to detector pixels.
	Calibration pattern.Calibration

	// HalfSizePx bounds projected peaks to |x|,|y| <= HalfSizePx pixels
	// from the pattern center. Zero disables the bound.
	HalfSizePx int

	// WithDirectBeam includes the (000) direct beam as a unit-intensity
	// peak at the pattern center.
	WithDirectBeam bool
}

// DefaultConfig returns a configuration for 200 keV templates with typical
// small-angle electron diffraction cutoffs.
func DefaultConfig(cal pattern.Calibration) Config {
	return Config{
		BeamEnergyKeV:      200,
		ReciprocalRadius:   1.35,
		MaxExcitationError: 0.02,
		Calibration:        cal,
	}
}

func (c Config) validate() error {
	if c.BeamEnergyKeV <= 0 {
		return templix.NewConfigurationError("simulate", "beam energy must be positive", nil)
	}
	if c.ReciprocalRadius <= 0 {
		return templix.NewConfigurationError("simulate", "reciprocal radius must be positive", nil)
	}
	if c.MaxExcitationError <= 0 {
		return templix.NewConfigurationError("simulate", "excitation error cutoff must be positive", nil)
	}
	if c.HalfSizePx < 0 {
		return templix.NewConfigurationError("simulate", "half size must be non-negative", nil)
	}
	if err := c.Calibration.Validate(); err != nil {
		return templix.NewConfigurationError("simulate", err.Error(), nil)
	}
	return nil
}

// Simulator produces one template per (structure, orientation) pair.
// It is stateless after construction and safe for concurrent use.
type Simulator struct {
	cfg        Config
	wavelength float64
	shapeWidth float64
}

// NewSimulator validates cfg and precomputes the relativistic electron
// wavelength.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	shapeWidth := cfg.ShapeFactorWidth
	if shapeWidth <= 0 {
		shapeWidth = cfg.MaxExcitationError
	}

	return &Simulator{
		cfg:        cfg,
		wavelength: Wavelength(cfg.BeamEnergyKeV),
		shapeWidth: shapeWidth,
	}, nil
}

// Wavelength returns the relativistic electron wavelength in Å for an
// accelerating voltage in keV.
func Wavelength(keV float64) float64 {
	v := keV * 1e3
	return 12.2639 / math.Sqrt(v*(1+0.97845e-6*v))
}

// Simulate produces the template for one structure at one orientation.
// The result is deterministic for fixed inputs; a template may legitimately
// end up with zero peaks when no reflection satisfies the excitation
// cutoff at that orientation.
func (s *Simulator) Simulate(st *crystal.Structure, rot orientation.Rotation) library.Template {
	pts := st.ReciprocalPointsWithin(s.cfg.ReciprocalRadius)
	amps := make([]float64, len(pts))
	for i, p := range pts {
		amps[i] = st.StructureFactor(p.H, p.K, p.L)
	}
	return s.simulate(pts, amps, rot)
}

// simulate is the per-orientation core over precomputed reciprocal points
// and structure factor magnitudes; the builder shares the precomputation
// across a whole orientation grid.
func (s *Simulator) simulate(pts []crystal.ReciprocalPoint, amps []float64, rot orientation.Rotation) library.Template {
	tmpl := library.Template{Rotation: rot}
	scale := s.cfg.Calibration.Scale
	half := float64(s.cfg.HalfSizePx)

	var maxI float64
	if s.cfg.WithDirectBeam {
		tmpl.PeakX = append(tmpl.PeakX, 0)
		tmpl.PeakY = append(tmpl.PeakY, 0)
		tmpl.Intensity = append(tmpl.Intensity, 0) // placeholder, set to max below
	}

	for i, p := range pts {
		g := rot.Apply(p.G)

		// Deviation from the flat Ewald sphere in the small-angle limit.
		sg := -g[2] - s.wavelength*p.GMag*p.GMag/2
		if math.Abs(sg) > s.cfg.MaxExcitationError {
			continue
		}

		px := g[0] / scale
		py := g[1] / scale
		if half > 0 && (math.Abs(px) > half || math.Abs(py) > half) {
			continue
		}

		shape := 1 / (1 + (sg/s.shapeWidth)*(sg/s.shapeWidth))
		intensity := amps[i] * amps[i] * shape
		if intensity <= 0 {
			continue
		}

		tmpl.PeakX = append(tmpl.PeakX, float32(px))
		tmpl.PeakY = append(tmpl.PeakY, float32(py))
		tmpl.Intensity = append(tmpl.Intensity, float32(intensity))
		if intensity > maxI {
			maxI = intensity
		}
	}

	if s.cfg.WithDirectBeam && len(tmpl.Intensity) == 1 {
		// Nothing diffracted; drop the placeholder too.
		return library.Template{Rotation: rot}
	}

	// Normalize so the strongest reflection is 1. The direct beam, when
	// included, is pinned to 1 as well.
	if maxI > 0 {
		floats.ScaleInPlace(tmpl.Intensity, float32(1/maxI))
		if s.cfg.WithDirectBeam {
			tmpl.Intensity[0] = 1
		}
	}

	return tmpl
}
