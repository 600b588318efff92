package integrators

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/newton"
	"gonum.org/v1/gonum/mat"
)

// thetaResidual is R(y) = y - y0 - tau*((1-theta) F(y0) + theta F(y)).
// theta = 1 gives implicit Euler, theta = 1/2 Crank-Nicolson.
type thetaResidual struct {
	rhs   dynamo.Function
	theta float64
	tau   float64
	y0    dynamo.State
	f0    dynamo.State
	f     dynamo.State
}

func (r *thetaResidual) DimX() int { return r.rhs.DimX() }
func (r *thetaResidual) DimF() int { return r.rhs.DimF() }

func (r *thetaResidual) Evaluate(y, out dynamo.State) {
	r.rhs.Evaluate(y, r.f)
	for i := range out {
		out[i] = y[i] - r.y0[i] - r.tau*(r.theta*r.f[i]+(1-r.theta)*r.f0[i])
	}
}

// EvaluateDeriv writes I - theta*tau*F'(y).
func (r *thetaResidual) EvaluateDeriv(y dynamo.State, dr *mat.Dense) {
	r.rhs.EvaluateDeriv(y, dr)
	dr.Scale(-r.theta*r.tau, dr)
	for i := 0; i < len(y); i++ {
		dr.Set(i, i, dr.At(i, i)+1)
	}
}

type thetaStepper struct {
	name   string
	res    thetaResidual
	solver *newton.Solver
	work   dynamo.State
	last   newton.Stats
}

func newThetaStepper(name string, rhs dynamo.Function, theta float64, opts []newton.Option) (thetaStepper, error) {
	if err := dynamo.CheckSquare(rhs); err != nil {
		return thetaStepper{}, err
	}
	n := rhs.DimX()
	return thetaStepper{
		name: name,
		res: thetaResidual{
			rhs:   rhs,
			theta: theta,
			y0:    make(dynamo.State, n),
			f0:    make(dynamo.State, n),
			f:     make(dynamo.State, n),
		},
		solver: newton.New(opts...),
		work:   make(dynamo.State, n),
	}, nil
}

func (s *thetaStepper) Step(tau float64, y dynamo.State) error {
	if err := checkStep(s.res.rhs, tau, y); err != nil {
		return err
	}
	s.res.tau = tau
	copy(s.res.y0, y)
	if s.res.theta < 1 {
		s.res.rhs.Evaluate(y, s.res.f0)
	}

	copy(s.work, y)
	stats, err := s.solver.Solve(&s.res, s.work)
	s.last = stats
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	copy(y, s.work)
	return nil
}

// LastStats reports the Newton work of the most recent Step.
func (s *thetaStepper) LastStats() newton.Stats { return s.last }

// ImplicitEuler is backward Euler: first order, unconditionally stable,
// numerically damped for oscillatory systems.
type ImplicitEuler struct {
	thetaStepper
}

func NewImplicitEuler(rhs dynamo.Function, opts ...newton.Option) (*ImplicitEuler, error) {
	ts, err := newThetaStepper("implicit euler", rhs, 1, opts)
	if err != nil {
		return nil, err
	}
	return &ImplicitEuler{ts}, nil
}

// CrankNicolson is the implicit trapezoidal rule: second order and energy
// preserving for linear oscillators.
type CrankNicolson struct {
	thetaStepper
}

func NewCrankNicolson(rhs dynamo.Function, opts ...newton.Option) (*CrankNicolson, error) {
	ts, err := newThetaStepper("crank-nicolson", rhs, 0.5, opts)
	if err != nil {
		return nil, err
	}
	return &CrankNicolson{ts}, nil
}
