package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/autodiff"
	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Pendulum is a point mass on a rigid rod, state (theta, omega).
// The Jacobian comes from the same generic field as F, so it is exact.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.0,
		Gravity: 9.81,
	}
}

func pendulumField[T autodiff.Scalar[T]](g, l, damping float64, x, f []T) {
	theta, omega := x[0], x[1]
	f[0] = omega
	f[1] = theta.Sin().MulConst(-g / l).Sub(omega.MulConst(damping))
}

func (p *Pendulum) DimX() int { return 2 }
func (p *Pendulum) DimF() int { return 2 }

func (p *Pendulum) Evaluate(x, f dynamo.State) {
	autodiff.Evaluate(func(x, f []autodiff.Real) {
		pendulumField(p.Gravity, p.Length, p.Damping, x, f)
	}, x, f)
}

func (p *Pendulum) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	autodiff.Jacobian(func(x, f []autodiff.AutoDiff[[2]float64]) {
		pendulumField(p.Gravity, p.Length, p.Damping, x, f)
	}, x, df)
}

func (p *Pendulum) Energy(x dynamo.State) float64 {
	// KE = 0.5 * m * (L*omega)^2
	// PE = m * g * L * (1 - cos(theta))
	v := p.Length * x[1]
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(x[0]))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		if err := positive(name, value); err != nil {
			return err
		}
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return unknownParam(name)
	}
	return nil
}
