package physics

import (
	"github.com/san-kum/odestep/internal/autodiff"
	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Lorenz is the chaotic convection system with state (x, y, z).
type Lorenz struct {
	Sigma, Rho, Beta float64
}

func NewLorenz() *Lorenz { return &Lorenz{Sigma: 10, Rho: 28, Beta: 8.0 / 3.0} }

func lorenzField[T autodiff.Scalar[T]](sigma, rho, beta float64, s, f []T) {
	x, y, z := s[0], s[1], s[2]
	f[0] = y.Sub(x).MulConst(sigma)
	f[1] = x.Mul(z.Neg().AddConst(rho)).Sub(y)
	f[2] = x.Mul(y).Sub(z.MulConst(beta))
}

func (l *Lorenz) DimX() int { return 3 }
func (l *Lorenz) DimF() int { return 3 }

func (l *Lorenz) Evaluate(x, f dynamo.State) {
	autodiff.Evaluate(func(x, f []autodiff.Real) { lorenzField(l.Sigma, l.Rho, l.Beta, x, f) }, x, f)
}

func (l *Lorenz) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	autodiff.Jacobian(func(x, f []autodiff.AutoDiff[[3]float64]) { lorenzField(l.Sigma, l.Rho, l.Beta, x, f) }, x, df)
}

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}

func (l *Lorenz) SetParam(name string, value float64) error {
	switch name {
	case "sigma":
		l.Sigma = value
	case "rho":
		l.Rho = value
	case "beta":
		l.Beta = value
	default:
		return unknownParam(name)
	}
	return nil
}
