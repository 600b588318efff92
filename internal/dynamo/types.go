package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is an ordered, fixed-length vector of integrated variables. It is
// owned by the driver; steppers mutate it in place and never retain it.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MaxAbs returns the max-absolute (infinity) norm.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Function is the right-hand side F of y' = F(y).
//
// Evaluate writes F(x) into f, which has length DimF. EvaluateDeriv writes
// the DimF x DimX Jacobian dF/dx into df. Both must be pure in x.
type Function interface {
	DimX() int
	DimF() int
	Evaluate(x, f State)
	EvaluateDeriv(x State, df *mat.Dense)
}

// Stepper advances y in place by one interval tau. A failed step returns an
// error and leaves y unchanged.
type Stepper interface {
	Step(tau float64, y State) error
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// CheckSquare returns ErrDimensionMismatch unless fn maps R^n to R^n.
func CheckSquare(fn Function) error {
	if fn.DimX() != fn.DimF() {
		return fmt.Errorf("dimX=%d dimF=%d: %w", fn.DimX(), fn.DimF(), ErrDimensionMismatch)
	}
	return nil
}
