package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sim"
)

// ExactSolution is implemented by models with a closed-form trajectory.
type ExactSolution interface {
	Exact(t float64, y0 dynamo.State) dynamo.State
}

// StepperFactory builds a fresh stepper for each run of a study.
type StepperFactory func(rhs dynamo.Function) (dynamo.Stepper, error)

type Sample struct {
	Steps int
	Tau   float64
	Error float64
}

type Study struct {
	Samples []Sample
	// Orders[i] is the order observed between Samples[i] and Samples[i+1].
	Orders []float64
	// SelfConvergent is set when no exact solution was available and each
	// error was measured against the next finer run.
	SelfConvergent bool
}

// MeanOrder averages the finite entries of Orders.
func (s *Study) MeanOrder() float64 {
	var sum float64
	var n int
	for _, p := range s.Orders {
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			sum += p
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// EstimateOrder returns log(errCoarse/errFine) / log(ratio), where ratio
// is the factor by which the step shrank. With ratio 2 this is
// log2(err(tau)/err(tau/2)).
func EstimateOrder(errCoarse, errFine, ratio float64) float64 {
	return math.Log(errCoarse/errFine) / math.Log(ratio)
}

// ConvergenceStudy integrates x0 over [0, duration] once per entry of steps
// and records the max-norm error of the final state. Errors are measured
// against rhs.Exact when rhs implements ExactSolution; otherwise against the
// next finer run, so the finest run yields no sample.
func ConvergenceStudy(
	ctx context.Context,
	rhs dynamo.Function,
	newStepper StepperFactory,
	x0 dynamo.State,
	duration float64,
	steps []int,
) (*Study, error) {
	if len(steps) < 2 {
		return nil, fmt.Errorf("convergence study needs at least two step counts, got %d", len(steps))
	}
	ladder := append([]int(nil), steps...)
	sort.Ints(ladder)

	finals := make([]dynamo.State, len(ladder))
	for i, n := range ladder {
		stepper, err := newStepper(rhs)
		if err != nil {
			return nil, err
		}
		res, err := sim.New(rhs, stepper).Run(ctx, x0, sim.Config{Duration: duration, Steps: n})
		if err != nil {
			return nil, fmt.Errorf("%d steps: %w", n, err)
		}
		finals[i] = res.Final()
	}

	study := &Study{}
	if exact, ok := rhs.(ExactSolution); ok {
		want := exact.Exact(duration, x0)
		for i, n := range ladder {
			study.Samples = append(study.Samples, Sample{
				Steps: n,
				Tau:   duration / float64(n),
				Error: finals[i].Sub(want).MaxAbs(),
			})
		}
	} else {
		study.SelfConvergent = true
		for i := 0; i+1 < len(ladder); i++ {
			study.Samples = append(study.Samples, Sample{
				Steps: ladder[i],
				Tau:   duration / float64(ladder[i]),
				Error: finals[i].Sub(finals[i+1]).MaxAbs(),
			})
		}
	}

	for i := 0; i+1 < len(study.Samples); i++ {
		a, b := study.Samples[i], study.Samples[i+1]
		study.Orders = append(study.Orders, EstimateOrder(a.Error, b.Error, a.Tau/b.Tau))
	}
	return study, nil
}
