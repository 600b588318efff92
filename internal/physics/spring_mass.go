package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 1.0
)

// MassSpring is a single undamped oscillator with state (x, v).
type MassSpring struct {
	Mass      float64
	Stiffness float64
}

func NewMassSpring(mass, stiffness float64) *MassSpring {
	return &MassSpring{Mass: mass, Stiffness: stiffness}
}

func (s *MassSpring) DimX() int { return 2 }
func (s *MassSpring) DimF() int { return 2 }

func (s *MassSpring) Evaluate(x, f dynamo.State) {
	f[0] = x[1]
	f[1] = -s.Stiffness / s.Mass * x[0]
}

func (s *MassSpring) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	df.Set(0, 0, 0)
	df.Set(0, 1, 1)
	df.Set(1, 0, -s.Stiffness/s.Mass)
	df.Set(1, 1, 0)
}

func (s *MassSpring) Energy(x dynamo.State) float64 {
	return 0.5*s.Mass*x[1]*x[1] + 0.5*s.Stiffness*x[0]*x[0]
}

// Exact returns the analytic trajectory from y0 at time t.
func (s *MassSpring) Exact(t float64, y0 dynamo.State) dynamo.State {
	w := math.Sqrt(s.Stiffness / s.Mass)
	c, sn := math.Cos(w*t), math.Sin(w*t)
	return dynamo.State{
		y0[0]*c + y0[1]/w*sn,
		-y0[0]*w*sn + y0[1]*c,
	}
}

func (s *MassSpring) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
	}
}

func (s *MassSpring) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := positive(name, value); err != nil {
			return err
		}
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	default:
		return unknownParam(name)
	}
	return nil
}
