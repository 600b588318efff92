package sim

import (
	"context"

	"github.com/san-kum/odestep/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Job is one independent run. Each job needs its own Simulator: steppers
// carry scratch buffers and are not safe for concurrent use.
type Job struct {
	Name   string
	Sim    *Simulator
	X0     dynamo.State
	Config Config
}

type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// Batch runs jobs concurrently with at most workers in flight (unbounded
// when workers <= 0). A failing job does not stop the others; outcomes keep
// the order of jobs.
func Batch(ctx context.Context, jobs []Job, workers int) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, job := range jobs {
		g.Go(func() error {
			res, err := job.Sim.Run(ctx, job.X0, job.Config)
			outcomes[i] = Outcome{Name: job.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
