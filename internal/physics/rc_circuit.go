package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/autodiff"
	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// RCCircuit is a capacitor charged through a resistor by the source
// U(t) = cos(2 pi f t). Time is carried as the second state component so
// the system stays autonomous:
//
//	Uc' = (U(t) - Uc) / (R C)
//	t'  = 1
type RCCircuit struct {
	R         float64
	C         float64
	Frequency float64
}

func NewRCCircuit() *RCCircuit {
	return &RCCircuit{
		R:         100.0,
		C:         1e-6,
		Frequency: 50.0,
	}
}

func rcField[T autodiff.Scalar[T]](rc, omega float64, x, f []T) {
	uc, t := x[0], x[1]
	f[0] = t.MulConst(omega).Cos().Sub(uc).MulConst(1 / rc)
	f[1] = t.Lift(1)
}

func (c *RCCircuit) omega() float64 { return 2 * math.Pi * c.Frequency }

func (c *RCCircuit) DimX() int { return 2 }
func (c *RCCircuit) DimF() int { return 2 }

func (c *RCCircuit) Evaluate(x, f dynamo.State) {
	rc, w := c.R*c.C, c.omega()
	autodiff.Evaluate(func(x, f []autodiff.Real) { rcField(rc, w, x, f) }, x, f)
}

func (c *RCCircuit) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	rc, w := c.R*c.C, c.omega()
	autodiff.Jacobian(func(x, f []autodiff.AutoDiff[[2]float64]) { rcField(rc, w, x, f) }, x, df)
}

// Source returns the driving voltage at time t.
func (c *RCCircuit) Source(t float64) float64 {
	return math.Cos(c.omega() * t)
}

func (c *RCCircuit) GetParams() map[string]float64 {
	return map[string]float64{
		"r":         c.R,
		"c":         c.C,
		"frequency": c.Frequency,
	}
}

func (c *RCCircuit) SetParam(name string, value float64) error {
	switch name {
	case "r":
		if err := positive(name, value); err != nil {
			return err
		}
		c.R = value
	case "c":
		if err := positive(name, value); err != nil {
			return err
		}
		c.C = value
	case "frequency":
		c.Frequency = value
	default:
		return unknownParam(name)
	}
	return nil
}
