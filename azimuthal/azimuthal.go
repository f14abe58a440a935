// Package azimuthal converts 2D diffraction patterns into radial
// intensity profiles by integrating over angular rings around the
// calibrated pattern center.
package azimuthal

import (
	"errors"
	"math"

	"github.com/hupe1980/templix"
	"github.com/hupe1980/templix/pattern"
)

// ErrInvalidBins is returned when the bin count is not positive.
var ErrInvalidBins = errors.New("bin count must be positive")

// Config controls the radial binning. All fields are explicit; radii are
// in reciprocal units (1/Å) through the pattern's calibration.
type Config struct {
	// Bins is the number of radial bins.
	Bins int
	// RMin is the inner integration radius. Zero starts at the center.
	RMin float64
	// RMax is the outer integration radius. Zero extends to the farthest
	// detector corner.
	RMax float64
}

// Integrator bins pattern intensities radially. It is stateless after
// construction and safe for concurrent use.
type Integrator struct {
	cfg Config
}

// NewIntegrator validates cfg.
func NewIntegrator(cfg Config) (*Integrator, error) {
	if cfg.Bins <= 0 {
		return nil, templix.NewConfigurationError("azimuthal",
			"bin count must be positive", ErrInvalidBins)
	}
	if cfg.RMin < 0 {
		return nil, templix.NewConfigurationError("azimuthal",
			"inner radius must be non-negative", nil)
	}
	if cfg.RMax > 0 && cfg.RMax <= cfg.RMin {
		return nil, templix.NewConfigurationError("azimuthal",
			"outer radius must exceed inner radius", nil)
	}
	return &Integrator{cfg: cfg}, nil
}

// Profile is a radial intensity profile: mean intensity per ring.
type Profile struct {
	// Radius holds the bin centers in 1/Å.
	Radius []float64
	// Intensity holds the mean intensity of the contributing pixels.
	// Bins with no contributing pixel hold 0.
	Intensity []float64
	// Counts holds the number of contributing pixels per bin.
	Counts []int
}

// Integrate bins every unmasked finite pixel of pat by its reciprocal
// distance from the calibrated center. A nil mask excludes nothing.
func (ig *Integrator) Integrate(pat pattern.Pattern, mask *pattern.Mask) (Profile, error) {
	if err := pat.Calibration.Validate(); err != nil {
		return Profile{}, err
	}

	cal := pat.Calibration
	rMax := ig.cfg.RMax
	if rMax <= 0 {
		rMax = cornerRadius(pat)
	}
	width := (rMax - ig.cfg.RMin) / float64(ig.cfg.Bins)

	p := Profile{
		Radius:    make([]float64, ig.cfg.Bins),
		Intensity: make([]float64, ig.cfg.Bins),
		Counts:    make([]int, ig.cfg.Bins),
	}
	for i := range p.Radius {
		p.Radius[i] = ig.cfg.RMin + (float64(i)+0.5)*width
	}

	for y := 0; y < pat.Height; y++ {
		for x := 0; x < pat.Width; x++ {
			if mask != nil && mask.Excluded(x, y, pat.Width) {
				continue
			}
			v := float64(pat.At(x, y))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}

			dx := float64(x) - cal.CenterX
			dy := float64(y) - cal.CenterY
			r := math.Hypot(dx, dy) * cal.Scale
			if r < ig.cfg.RMin || r >= rMax {
				continue
			}

			bin := int((r - ig.cfg.RMin) / width)
			if bin >= ig.cfg.Bins {
				bin = ig.cfg.Bins - 1
			}
			p.Intensity[bin] += v
			p.Counts[bin]++
		}
	}

	for i := range p.Intensity {
		if p.Counts[i] > 0 {
			p.Intensity[i] /= float64(p.Counts[i])
		}
	}

	return p, nil
}

// cornerRadius returns the reciprocal distance from the calibrated center
// to the farthest detector corner.
func cornerRadius(pat pattern.Pattern) float64 {
	cal := pat.Calibration
	var r float64
	for _, c := range [][2]float64{
		{0, 0},
		{float64(pat.Width - 1), 0},
		{0, float64(pat.Height - 1)},
		{float64(pat.Width - 1), float64(pat.Height - 1)},
	} {
		d := math.Hypot(c[0]-cal.CenterX, c[1]-cal.CenterY)
		if d > r {
			r = d
		}
	}
	return r * cal.Scale
}
