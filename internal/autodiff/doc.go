// Package autodiff implements forward-mode automatic differentiation.
//
// [AutoDiff] carries a value together with the partial derivatives with
// respect to a fixed number of independent variables. The number is part of
// the type: AutoDiff[[2]float64] and AutoDiff[[3]float64] cannot be mixed.
//
// Models write their right-hand side once, generic over [Scalar], and
// instantiate it with [Real] for evaluation and with AutoDiff for exact
// Jacobians:
//
//	func field[T autodiff.Scalar[T]](x, f []T) {
//	    f[0] = x[1]
//	    f[1] = x[0].Sin().MulConst(-9.81)
//	}
//
//	autodiff.Jacobian(field[autodiff.AutoDiff[[2]float64]], x, df)
package autodiff
