package pattern

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Affine is an in-plane geometric correction applied to template peak
// coordinates before they are compared with the experimental image:
//
//	x' = A00·x + A01·y + Tx
//	y' = A10·x + A11·y + Ty
//
// It models detector center offset and linear distortion (scale, shear,
// small rotation). The zero value is not valid; use IdentityAffine or
// NewAffine.
type Affine struct {
	m *mat.Dense // 3x3 homogeneous
}

// IdentityAffine returns the identity correction.
func IdentityAffine() Affine {
	return Affine{m: mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// NewAffine builds a correction from the 2x2 linear part and translation.
func NewAffine(a00, a01, a10, a11, tx, ty float64) Affine {
	return Affine{m: mat.NewDense(3, 3, []float64{
		a00, a01, tx,
		a10, a11, ty,
		0, 0, 1,
	})}
}

// Translation returns a pure center-offset correction.
func Translation(tx, ty float64) Affine {
	return NewAffine(1, 0, 0, 1, tx, ty)
}

// IsZero reports whether the affine is the uninitialized zero value.
func (a Affine) IsZero() bool { return a.m == nil }

// Apply transforms the point (x, y).
func (a Affine) Apply(x, y float64) (float64, float64) {
	if a.m == nil {
		return x, y
	}
	return a.m.At(0, 0)*x + a.m.At(0, 1)*y + a.m.At(0, 2),
		a.m.At(1, 0)*x + a.m.At(1, 1)*y + a.m.At(1, 2)
}

// Compose returns the correction that applies o first, then a.
func (a Affine) Compose(o Affine) Affine {
	if a.m == nil {
		return o
	}
	if o.m == nil {
		return a
	}
	var out mat.Dense
	out.Mul(a.m, o.m)
	return Affine{m: &out}
}

// Inverse returns the inverse correction. It fails when the linear part is
// singular (degenerate distortion).
func (a Affine) Inverse() (Affine, error) {
	if a.m == nil {
		return IdentityAffine(), nil
	}
	var inv mat.Dense
	if err := inv.Inverse(a.m); err != nil {
		return Affine{}, fmt.Errorf("singular affine correction: %w", err)
	}
	return Affine{m: &inv}, nil
}
