package autodiff

import "math"

// Scalar is the arithmetic a generic model needs. Both [Real] and
// [AutoDiff] satisfy Scalar of themselves.
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	AddConst(float64) T
	MulConst(float64) T
	Sin() T
	Cos() T
	Exp() T
	Log() T
	Sqrt() T
	Pow(float64) T
	Value() float64
	// Lift returns the constant v in the receiver's type.
	Lift(v float64) T
}

// Real is a plain float64 with the [Scalar] method set.
type Real float64

func (a Real) Add(b Real) Real         { return a + b }
func (a Real) Sub(b Real) Real         { return a - b }
func (a Real) Mul(b Real) Real         { return a * b }
func (a Real) Div(b Real) Real         { return a / b }
func (a Real) Neg() Real               { return -a }
func (a Real) AddConst(c float64) Real { return a + Real(c) }
func (a Real) MulConst(c float64) Real { return a * Real(c) }
func (a Real) Sin() Real               { return Real(math.Sin(float64(a))) }
func (a Real) Cos() Real               { return Real(math.Cos(float64(a))) }
func (a Real) Exp() Real               { return Real(math.Exp(float64(a))) }
func (a Real) Log() Real               { return Real(math.Log(float64(a))) }
func (a Real) Sqrt() Real              { return Real(math.Sqrt(float64(a))) }
func (a Real) Pow(p float64) Real      { return Real(math.Pow(float64(a), p)) }
func (a Real) Value() float64          { return float64(a) }
func (a Real) Lift(v float64) Real     { return Real(v) }

// Evaluate runs a generic field over plain floats, reading x and writing f.
func Evaluate(eval func(x, f []Real), x, f []float64) {
	xr := make([]Real, len(x))
	for i, v := range x {
		xr[i] = Real(v)
	}
	fr := make([]Real, len(f))
	eval(xr, fr)
	for i, v := range fr {
		f[i] = float64(v)
	}
}
