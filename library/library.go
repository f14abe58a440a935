// Package library holds simulated diffraction templates grouped by phase.
//
// A Library is built once (see the simulate package), treated as immutable
// afterwards, and can be shared by any number of concurrent readers. The
// correlation indexer references templates in place; it never copies them.
package library

import (
	"errors"
	"fmt"

	"github.com/hupe1980/templix/internal/floats"
	"github.com/hupe1980/templix/orientation"
)

var (
	// ErrEmpty is returned when a library holds no templates.
	ErrEmpty = errors.New("diffraction library is empty")

	// ErrDuplicatePhase is returned when two phases share a label.
	ErrDuplicatePhase = errors.New("duplicate phase label")
)

// Template is the simulated diffraction pattern of one (phase, orientation)
// pair: sparse calibrated peak positions plus relative intensities.
//
// PeakX/PeakY are detector pixel offsets relative to the pattern center.
// Intensities are non-negative and normalized so the strongest peak is 1.
// Templates are immutable after simulation.
type Template struct {
	PeakX     []float32
	PeakY     []float32
	Intensity []float32
	Rotation  orientation.Rotation
}

// Len returns the number of peaks.
func (t *Template) Len() int { return len(t.Intensity) }

// Phase is one named structure's ordered template sequence, one template
// per grid orientation.
type Phase struct {
	Label     string
	Templates []Template
}

// Library maps phase labels to ordered template sequences. Phases keep
// their registration order; templates keep grid order. Each template also
// has a stable global index (phase-major) used as the deterministic
// tie-break during scoring.
type Library struct {
	phases []Phase
	// offsets[i] is the global index of phases[i].Templates[0].
	offsets []int
	total   int
}

// New assembles a library from per-phase template sequences.
func New(phases []Phase) (*Library, error) {
	seen := make(map[string]struct{}, len(phases))
	lib := &Library{}
	for _, p := range phases {
		if p.Label == "" {
			return nil, fmt.Errorf("phase %d: empty label", len(lib.phases))
		}
		if _, dup := seen[p.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePhase, p.Label)
		}
		if len(p.Templates) == 0 {
			return nil, fmt.Errorf("phase %q: no templates", p.Label)
		}
		for oi, t := range p.Templates {
			if len(t.PeakX) != len(t.Intensity) || len(t.PeakY) != len(t.Intensity) {
				return nil, fmt.Errorf("phase %q orientation %d: peak slice lengths do not match", p.Label, oi)
			}
			if !floats.AllFinite(t.Intensity) {
				return nil, fmt.Errorf("phase %q orientation %d: non-finite intensity", p.Label, oi)
			}
		}
		seen[p.Label] = struct{}{}
		lib.offsets = append(lib.offsets, lib.total)
		lib.phases = append(lib.phases, p)
		lib.total += len(p.Templates)
	}
	if lib.total == 0 {
		return nil, ErrEmpty
	}
	return lib, nil
}

// Len returns the total number of templates across all phases.
func (l *Library) Len() int { return l.total }

// NumPhases returns the number of phases.
func (l *Library) NumPhases() int { return len(l.phases) }

// PhaseLabels returns the phase labels in registration order.
func (l *Library) PhaseLabels() []string {
	labels := make([]string, len(l.phases))
	for i, p := range l.phases {
		labels[i] = p.Label
	}
	return labels
}

// PhaseByLabel returns the phase with the given label.
func (l *Library) PhaseByLabel(label string) (Phase, bool) {
	for _, p := range l.phases {
		if p.Label == label {
			return p, true
		}
	}
	return Phase{}, false
}

// Entry resolves a global template index to (phase label, orientation
// index, template). It panics if idx is out of range; global indexes only
// originate from the library itself.
func (l *Library) Entry(idx int) (string, int, *Template) {
	if idx < 0 || idx >= l.total {
		panic(fmt.Sprintf("library: global index %d out of range [0,%d)", idx, l.total))
	}
	for i := len(l.offsets) - 1; i >= 0; i-- {
		if idx >= l.offsets[i] {
			p := &l.phases[i]
			oi := idx - l.offsets[i]
			return p.Label, oi, &p.Templates[oi]
		}
	}
	panic("unreachable")
}

// Each calls fn for every template in global index order. fn must not
// retain or mutate the template. Iteration stops early if fn returns false.
func (l *Library) Each(fn func(idx int, phase string, orientIdx int, tmpl *Template) bool) {
	idx := 0
	for pi := range l.phases {
		p := &l.phases[pi]
		for oi := range p.Templates {
			if !fn(idx, p.Label, oi, &p.Templates[oi]) {
				return
			}
			idx++
		}
	}
}
