// Package floats provides portable float32 slice operations shared by the
// simulation and library packages. This is an internal package.
package floats

import "math"

// ScaleInPlace multiplies all elements of a by scalar.
//
// This is primarily used by intensity normalization.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// AllFinite reports whether every element of a is a finite number.
func AllFinite(a []float32) bool {
	for _, v := range a {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}
