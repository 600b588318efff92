package automation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/experiment"
	"github.com/san-kum/odestep/internal/sim"
)

// GridSearch evaluates every combination of parameter values and keeps
// the one with the smallest value of a metric.
type GridSearch struct {
	Base    *config.Config
	Params  []string
	Values  [][]float64
	Metric  string
	Workers int
}

type GridResult struct {
	Best      map[string]float64
	BestValue float64
	Evaluated int
	// Failed counts combinations whose run did not finish; they are
	// excluded from the minimum.
	Failed int
}

// combinations expands the grid in row-major order, the last parameter
// varying fastest.
func (g *GridSearch) combinations() []map[string]float64 {
	out := []map[string]float64{{}}
	for i, name := range g.Params {
		next := make([]map[string]float64, 0, len(out)*len(g.Values[i]))
		for _, partial := range out {
			for _, v := range g.Values[i] {
				c := maps.Clone(partial)
				c[name] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

// Search runs the grid through sim.Batch. It fails if no combination
// produced the metric.
func (g *GridSearch) Search(ctx context.Context, registry *experiment.Registry) (*GridResult, error) {
	if len(g.Params) == 0 || len(g.Params) != len(g.Values) {
		return nil, fmt.Errorf("grid has %d params and %d value lists", len(g.Params), len(g.Values))
	}
	for i, vs := range g.Values {
		if len(vs) == 0 {
			return nil, fmt.Errorf("no values for %s", g.Params[i])
		}
	}

	combos := g.combinations()
	jobs := make([]sim.Job, len(combos))
	for i, params := range combos {
		cfg := g.Base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		maps.Copy(cfg.Params, params)
		exp, err := experiment.New(registry, cfg, nil)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", params, err)
		}
		jobs[i] = sim.Job{
			Name:   fmt.Sprint(params),
			Sim:    exp.GetSimulator(),
			X0:     exp.InitialState(),
			Config: exp.SimConfig(),
		}
	}

	res := &GridResult{BestValue: math.Inf(1)}
	for i, out := range sim.Batch(ctx, jobs, g.Workers) {
		if errors.Is(out.Err, dynamo.ErrContextCanceled) {
			return nil, out.Err
		}
		res.Evaluated++
		if out.Err != nil {
			res.Failed++
			continue
		}
		val, ok := out.Result.Metrics[g.Metric]
		if !ok || math.IsNaN(val) {
			continue
		}
		if val < res.BestValue {
			res.BestValue = val
			res.Best = combos[i]
		}
	}
	if res.Best == nil {
		return res, fmt.Errorf("no run produced metric %q", g.Metric)
	}
	return res, nil
}
