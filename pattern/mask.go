package pattern

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Mask marks detector pixels to exclude from scoring (beam stop shadows,
// dead pixels, cropped corners). Pixels are addressed by linearized index
// y*width + x over a compressed bitmap.
//
// Build the mask once, then treat it as read-only; concurrent readers are
// safe on a frozen mask.
type Mask struct {
	bits *roaring.Bitmap
}

// NewMask returns an empty mask.
func NewMask() *Mask {
	return &Mask{bits: roaring.New()}
}

// ExcludePixel marks pixel (x, y) as excluded.
func (m *Mask) ExcludePixel(x, y, width int) {
	m.bits.Add(uint32(y*width + x))
}

// ExcludeRect marks the rectangle [x0,x1)×[y0,y1) as excluded.
func (m *Mask) ExcludeRect(x0, y0, x1, y1, width int) {
	for y := y0; y < y1; y++ {
		m.bits.AddRange(uint64(y*width+x0), uint64(y*width+x1))
	}
}

// ExcludeCircle marks all pixels within radius of (cx, cy) as excluded.
// Typical use is masking the direct beam.
func (m *Mask) ExcludeCircle(cx, cy, radius float64, width, height int) {
	r2 := radius * radius
	for y := 0; y < height; y++ {
		dy := float64(y) - cy
		for x := 0; x < width; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy <= r2 {
				m.bits.Add(uint32(y*width + x))
			}
		}
	}
}

// Excluded reports whether pixel (x, y) is excluded.
func (m *Mask) Excluded(x, y, width int) bool {
	return m.bits.Contains(uint32(y*width + x))
}

// ExcludedIndex reports whether the linearized pixel index is excluded.
func (m *Mask) ExcludedIndex(idx uint32) bool {
	return m.bits.Contains(idx)
}

// Count returns the number of excluded pixels.
func (m *Mask) Count() uint64 {
	return m.bits.GetCardinality()
}

// Clone returns an independent copy of the mask.
func (m *Mask) Clone() *Mask {
	return &Mask{bits: m.bits.Clone()}
}
