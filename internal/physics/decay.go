package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Decay is linear exponential decay y' = -rate y.
type Decay struct {
	Rate float64
}

func NewDecay() *Decay {
	return &Decay{Rate: 1.0}
}

func (d *Decay) DimX() int { return 1 }
func (d *Decay) DimF() int { return 1 }

func (d *Decay) Evaluate(x, f dynamo.State) {
	f[0] = -d.Rate * x[0]
}

func (d *Decay) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	df.Set(0, 0, -d.Rate)
}

// Exact returns y0 exp(-rate t).
func (d *Decay) Exact(t float64, y0 dynamo.State) dynamo.State {
	return dynamo.State{y0[0] * math.Exp(-d.Rate*t)}
}

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"rate": d.Rate}
}

func (d *Decay) SetParam(name string, value float64) error {
	switch name {
	case "rate":
		d.Rate = value
	default:
		return unknownParam(name)
	}
	return nil
}
