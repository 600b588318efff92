package autodiff

import (
	"fmt"
	"math"
	"strings"
)

// Width enumerates the supported derivative array sizes.
type Width interface {
	[1]float64 | [2]float64 | [3]float64 | [4]float64 |
		[5]float64 | [6]float64 | [7]float64 | [8]float64 |
		[9]float64 | [10]float64 | [11]float64 | [12]float64 |
		[16]float64
}

// AutoDiff is a value with its gradient with respect to len(D) variables.
// The zero value is the constant 0.
type AutoDiff[D Width] struct {
	val   float64
	deriv D
}

// Const returns a constant: all partial derivatives are zero.
func Const[D Width](v float64) AutoDiff[D] {
	return AutoDiff[D]{val: v}
}

// Variable returns the independent variable with the given index, seeded
// with the unit vector e_index.
func Variable[D Width](v float64, index int) AutoDiff[D] {
	a := AutoDiff[D]{val: v}
	if index < 0 || index >= len(a.deriv) {
		panic(fmt.Sprintf("autodiff: variable index %d out of range [0,%d)", index, len(a.deriv)))
	}
	a.deriv[index] = 1
	return a
}

// Size returns the number of independent variables.
func Size[D Width]() int {
	var d D
	return len(d)
}

func (a AutoDiff[D]) Value() float64 { return a.val }

func (a AutoDiff[D]) Deriv(i int) float64 { return a.deriv[i] }

// Gradient returns a copy of the derivative array.
func (a AutoDiff[D]) Gradient() D { return a.deriv }

func (a AutoDiff[D]) Lift(v float64) AutoDiff[D] { return Const[D](v) }

func (a AutoDiff[D]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%g [", a.val)
	for i := 0; i < len(a.deriv); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%g", a.deriv[i])
	}
	b.WriteString("]")
	return b.String()
}

func (a AutoDiff[D]) Add(b AutoDiff[D]) AutoDiff[D] {
	r := AutoDiff[D]{val: a.val + b.val}
	for i := 0; i < len(r.deriv); i++ {
		r.deriv[i] = a.deriv[i] + b.deriv[i]
	}
	return r
}

func (a AutoDiff[D]) Sub(b AutoDiff[D]) AutoDiff[D] {
	r := AutoDiff[D]{val: a.val - b.val}
	for i := 0; i < len(r.deriv); i++ {
		r.deriv[i] = a.deriv[i] - b.deriv[i]
	}
	return r
}

func (a AutoDiff[D]) Mul(b AutoDiff[D]) AutoDiff[D] {
	r := AutoDiff[D]{val: a.val * b.val}
	for i := 0; i < len(r.deriv); i++ {
		r.deriv[i] = a.deriv[i]*b.val + a.val*b.deriv[i]
	}
	return r
}

// Div applies the quotient rule. A zero divisor yields Inf/NaN.
func (a AutoDiff[D]) Div(b AutoDiff[D]) AutoDiff[D] {
	r := AutoDiff[D]{val: a.val / b.val}
	b2 := b.val * b.val
	for i := 0; i < len(r.deriv); i++ {
		r.deriv[i] = (a.deriv[i]*b.val - a.val*b.deriv[i]) / b2
	}
	return r
}

func (a AutoDiff[D]) Neg() AutoDiff[D] {
	return a.MulConst(-1)
}

func (a AutoDiff[D]) AddConst(c float64) AutoDiff[D] {
	a.val += c
	return a
}

func (a AutoDiff[D]) MulConst(c float64) AutoDiff[D] {
	a.val *= c
	for i := 0; i < len(a.deriv); i++ {
		a.deriv[i] *= c
	}
	return a
}

// chain returns f(a) with derivative df * a'.
func (a AutoDiff[D]) chain(f, df float64) AutoDiff[D] {
	r := AutoDiff[D]{val: f}
	for i := 0; i < len(r.deriv); i++ {
		r.deriv[i] = df * a.deriv[i]
	}
	return r
}

func (a AutoDiff[D]) Sin() AutoDiff[D] {
	return a.chain(math.Sin(a.val), math.Cos(a.val))
}

func (a AutoDiff[D]) Cos() AutoDiff[D] {
	return a.chain(math.Cos(a.val), -math.Sin(a.val))
}

func (a AutoDiff[D]) Exp() AutoDiff[D] {
	e := math.Exp(a.val)
	return a.chain(e, e)
}

func (a AutoDiff[D]) Log() AutoDiff[D] {
	return a.chain(math.Log(a.val), 1/a.val)
}

func (a AutoDiff[D]) Sqrt() AutoDiff[D] {
	s := math.Sqrt(a.val)
	return a.chain(s, 0.5/s)
}

// Pow raises a to a constant power p.
func (a AutoDiff[D]) Pow(p float64) AutoDiff[D] {
	return a.chain(math.Pow(a.val, p), p*math.Pow(a.val, p-1))
}
