package physics

import (
	"fmt"

	"github.com/san-kum/odestep/internal/autodiff"
	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// VanDerPol is the oscillator
//
//	x' = y
//	y' = mu (1 - x^2) y - x
//
// which settles on a limit cycle. Large Mu makes it stiff.
type VanDerPol struct {
	Mu float64
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{Mu: 1.0}
}

func vanDerPolField[T autodiff.Scalar[T]](mu float64, x, f []T) {
	p, v := x[0], x[1]
	damping := p.Mul(p).Neg().AddConst(1).MulConst(mu)
	f[0] = v
	f[1] = damping.Mul(v).Sub(p)
}

func (v *VanDerPol) DimX() int { return 2 }
func (v *VanDerPol) DimF() int { return 2 }

func (v *VanDerPol) Evaluate(x, f dynamo.State) {
	autodiff.Evaluate(func(x, f []autodiff.Real) { vanDerPolField(v.Mu, x, f) }, x, f)
}

func (v *VanDerPol) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	autodiff.Jacobian(func(x, f []autodiff.AutoDiff[[2]float64]) { vanDerPolField(v.Mu, x, f) }, x, df)
}

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.Mu}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	switch name {
	case "mu":
		if value < 0 {
			return fmt.Errorf("mu must be non-negative, got %g: %w", value, dynamo.ErrParameterBounds)
		}
		v.Mu = value
	default:
		return unknownParam(name)
	}
	return nil
}
