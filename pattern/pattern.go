// Package pattern holds experimental diffraction patterns and the explicit
// calibration, mask and geometric-correction records that accompany them.
//
// Calibration always travels with the pixel data itself; nothing in this
// package mutates process-wide state.
package pattern

import (
	"fmt"
	"math"
)

// Calibration maps detector pixels to reciprocal space.
type Calibration struct {
	// Scale is the reciprocal-space pixel size in Å⁻¹ per pixel.
	Scale float64
	// CenterX, CenterY locate the direct beam in pixel coordinates.
	CenterX float64
	CenterY float64
}

// Validate checks the calibration is usable.
func (c Calibration) Validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("calibration scale %g must be positive", c.Scale)
	}
	return nil
}

// Pattern is one measured 2D diffraction image at a scan position.
// Data is row-major, length Width*Height. The struct is treated as
// read-only by the indexer.
type Pattern struct {
	Data        []float32
	Width       int
	Height      int
	Calibration Calibration
}

// New validates dimensions and wraps the data in a Pattern. The data slice
// is referenced, not copied.
func New(data []float32, width, height int, cal Calibration) (Pattern, error) {
	if width <= 0 || height <= 0 {
		return Pattern{}, fmt.Errorf("invalid pattern size %dx%d", width, height)
	}
	if len(data) != width*height {
		return Pattern{}, fmt.Errorf("pattern data length %d does not match %dx%d", len(data), width, height)
	}
	if err := cal.Validate(); err != nil {
		return Pattern{}, err
	}
	return Pattern{Data: data, Width: width, Height: height, Calibration: cal}, nil
}

// At returns the intensity at integer pixel (x, y). Out-of-bounds reads
// return 0.
func (p Pattern) At(x, y int) float32 {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return 0
	}
	return p.Data[y*p.Width+x]
}

// Sample returns the bilinearly interpolated intensity at fractional pixel
// coordinates. The second return value is false when (x, y) lies outside
// the detector or any contributing pixel is excluded by the mask (nil mask
// excludes nothing).
func (p Pattern) Sample(x, y float64, mask *Mask) (float32, bool) {
	if x < 0 || y < 0 || x > float64(p.Width-1) || y > float64(p.Height-1) {
		return 0, false
	}

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= p.Width {
		x1 = x0
	}
	if y1 >= p.Height {
		y1 = y0
	}

	if mask != nil {
		if mask.Excluded(x0, y0, p.Width) || mask.Excluded(x1, y0, p.Width) ||
			mask.Excluded(x0, y1, p.Width) || mask.Excluded(x1, y1, p.Width) {
			return 0, false
		}
	}

	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := float64(p.Data[y0*p.Width+x0])
	v10 := float64(p.Data[y0*p.Width+x1])
	v01 := float64(p.Data[y1*p.Width+x0])
	v11 := float64(p.Data[y1*p.Width+x1])

	v := v00*(1-fx)*(1-fy) + v10*fx*(1-fy) + v01*(1-fx)*fy + v11*fx*fy
	return float32(v), true
}

// HasFinite reports whether at least one unmasked pixel holds a finite
// intensity.
func (p Pattern) HasFinite(mask *Mask) bool {
	for i, v := range p.Data {
		if mask != nil && mask.ExcludedIndex(uint32(i)) {
			continue
		}
		f := float64(v)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return true
		}
	}
	return false
}
