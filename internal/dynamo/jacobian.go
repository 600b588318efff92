package dynamo

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// CentralDifference approximates the Jacobian of fn at x by central
// differences with step eps and writes it into df. The error is O(eps^2)
// truncation plus O(u/eps) rounding; it exists to cross-check exact Jacobians.
func CentralDifference(fn Function, x State, eps float64, df *mat.Dense) {
	fd.Jacobian(df, func(f, x []float64) {
		fn.Evaluate(x, f)
	}, x, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    eps,
	})
}

// MaxAbsDiff returns max |a_ij - b_ij|. Both matrices must share a shape.
func MaxAbsDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	m := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d := math.Abs(a.At(i, j) - b.At(i, j)); d > m {
				m = d
			}
		}
	}
	return m
}
