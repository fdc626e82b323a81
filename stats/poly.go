package stats

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Polynomials are coefficient slices in ascending powers of the backshift
// operator: p[0] + p[1]B + p[2]B² + ...

// PolyMul multiplies two polynomials.
func PolyMul(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// PolyRoots returns the roots of p as eigenvalues of its companion matrix.
// Trailing zero coefficients are ignored; a constant polynomial has no roots.
func PolyRoots(p []float64) []complex128 {
	deg := len(p) - 1
	for deg > 0 && p[deg] == 0 {
		deg--
	}
	if deg < 1 {
		return nil
	}

	lead := p[deg]
	c := mat.NewDense(deg, deg, nil)
	for j := 0; j < deg; j++ {
		c.Set(0, j, -p[deg-1-j]/lead)
	}
	for i := 1; i < deg; i++ {
		c.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(c, mat.EigenNone) {
		return nil
	}
	return eig.Values(nil)
}

// InverseRoots returns 1/z for each root z of p. A causal, invertible
// polynomial has all inverse roots strictly inside the unit circle.
func InverseRoots(p []float64) []complex128 {
	roots := PolyRoots(p)
	out := make([]complex128, 0, len(roots))
	for _, z := range roots {
		if z == 0 {
			continue
		}
		out = append(out, 1/z)
	}
	return out
}

// AllOutsideUnitCircle reports whether every root of p has modulus above
// 1+margin. Polynomials without roots trivially qualify.
func AllOutsideUnitCircle(p []float64, margin float64) bool {
	for _, z := range PolyRoots(p) {
		if cmplx.Abs(z) <= 1+margin {
			return false
		}
	}
	return true
}
