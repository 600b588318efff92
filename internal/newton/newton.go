// Package newton solves square nonlinear systems R(y) = 0 by pure Newton
// iteration with a dense LU solve per step. There is no line search or
// damping, so the iteration can diverge for poor initial guesses.
package newton

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 10
)

// Solver holds the convergence policy. It is stateless between calls
// apart from reusable work buffers and is not safe for concurrent use.
type Solver struct {
	tol     float64
	maxIter int

	n   int
	r   dynamo.State
	dy  *mat.VecDense
	jac *mat.Dense
	lu  mat.LU
}

type Option func(*Solver)

// WithTolerance sets the max-abs residual norm accepted as converged,
// relative to the iterate once its max-abs norm exceeds one.
func WithTolerance(tol float64) Option {
	return func(s *Solver) { s.tol = tol }
}

// WithMaxIterations bounds the number of Jacobian solves.
func WithMaxIterations(n int) Option {
	return func(s *Solver) { s.maxIter = n }
}

func New(opts ...Option) *Solver {
	s := &Solver{
		tol:     DefaultTolerance,
		maxIter: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) Tolerance() float64 { return s.tol }
func (s *Solver) MaxIterations() int { return s.maxIter }

// Stats reports the work done by one Solve.
type Stats struct {
	Iterations int
	Residual   float64
}

// ConvergenceError is returned when the iteration bound is exhausted.
type ConvergenceError struct {
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("newton: residual %.3e after %d iterations", e.Residual, e.Iterations)
}

func (e *ConvergenceError) Unwrap() error { return dynamo.ErrNotConverged }

func (s *Solver) ensureScratch(n int) {
	if s.n != n {
		s.n = n
		s.r = make(dynamo.State, n)
		s.dy = mat.NewVecDense(n, nil)
		s.jac = mat.NewDense(n, n, nil)
	}
}

// Solve iterates y <- y - R'(y)^{-1} R(y) in place until the max-abs norm of
// R(y) is at most tol*max(1, |y|_max). The scaling keeps rounding in large
// states from reading as non-convergence. On error y holds the last iterate
// and must be discarded by the caller.
func (s *Solver) Solve(res dynamo.Function, y dynamo.State) (Stats, error) {
	if err := dynamo.CheckSquare(res); err != nil {
		return Stats{}, err
	}
	n := res.DimX()
	if len(y) != n {
		return Stats{}, fmt.Errorf("newton: len(y)=%d dim=%d: %w", len(y), n, dynamo.ErrDimensionMismatch)
	}
	if n == 0 {
		return Stats{}, nil
	}
	s.ensureScratch(n)

	yv := mat.NewVecDense(n, y)
	rv := mat.NewVecDense(n, s.r)

	var stats Stats
	for {
		res.Evaluate(y, s.r)
		stats.Residual = s.r.MaxAbs()
		if math.IsNaN(stats.Residual) || math.IsInf(stats.Residual, 0) {
			return stats, fmt.Errorf("newton: iteration %d: %w", stats.Iterations, dynamo.ErrInvalidState)
		}
		if stats.Residual <= s.tol*max(1, y.MaxAbs()) {
			return stats, nil
		}
		if stats.Iterations >= s.maxIter {
			return stats, &ConvergenceError{Iterations: stats.Iterations, Residual: stats.Residual}
		}

		s.jac.Zero()
		res.EvaluateDeriv(y, s.jac)
		s.lu.Factorize(s.jac)
		if err := s.lu.SolveVecTo(s.dy, false, rv); err != nil {
			var cond mat.Condition
			if errors.As(err, &cond) {
				return stats, fmt.Errorf("newton: iteration %d (condition %.3g): %w", stats.Iterations, float64(cond), dynamo.ErrSingularJacobian)
			}
			return stats, fmt.Errorf("newton: iteration %d: %w", stats.Iterations, err)
		}

		yv.SubVec(yv, s.dy)
		stats.Iterations++
	}
}
