package integrators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/odestep/internal/dynamo"
)

// decay is y' = -y.
type decay struct{}

func (decay) DimX() int                                   { return 1 }
func (decay) DimF() int                                   { return 1 }
func (decay) Evaluate(x, f dynamo.State)                  { f[0] = -x[0] }
func (decay) EvaluateDeriv(x dynamo.State, df *mat.Dense) { df.Set(0, 0, -1) }

// harmonicOscillator is (y, v)' = (v, -y).
type harmonicOscillator struct{}

func (harmonicOscillator) DimX() int { return 2 }
func (harmonicOscillator) DimF() int { return 2 }

func (harmonicOscillator) Evaluate(x, f dynamo.State) {
	f[0] = x[1]
	f[1] = -x[0]
}

func (harmonicOscillator) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	df.Set(0, 1, 1)
	df.Set(1, 0, -1)
}

func (harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

// riccati is y' = y^2; implicit Euler from y0 = 1 with tau = 1 has no real
// solution and Newton cycles between 1 and 0.
type riccati struct{}

func (riccati) DimX() int                                   { return 1 }
func (riccati) DimF() int                                   { return 1 }
func (riccati) Evaluate(x, f dynamo.State)                  { f[0] = x[0] * x[0] }
func (riccati) EvaluateDeriv(x dynamo.State, df *mat.Dense) { df.Set(0, 0, 2*x[0]) }

// growth is y' = y; implicit Euler with tau = 1 has a zero Jacobian.
type growth struct{}

func (growth) DimX() int                                   { return 1 }
func (growth) DimF() int                                   { return 1 }
func (growth) Evaluate(x, f dynamo.State)                  { f[0] = x[0] }
func (growth) EvaluateDeriv(x dynamo.State, df *mat.Dense) { df.Set(0, 0, 1) }

// lopsided maps R^2 to R^3.
type lopsided struct{}

func (lopsided) DimX() int                              { return 2 }
func (lopsided) DimF() int                              { return 3 }
func (lopsided) Evaluate(x, f dynamo.State)             {}
func (lopsided) EvaluateDeriv(dynamo.State, *mat.Dense) {}
