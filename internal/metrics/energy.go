package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// EnergyDrift tracks the largest relative deviation of the energy from its
// value at the first observed state.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	h             dynamo.Hamiltonian
}

func NewEnergyDrift(h dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		h:    h,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	energy := e.h.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Current returns the most recently observed energy.
func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// EnergyTrend counts steps on which the energy strictly rose or fell. For
// the harmonic oscillator explicit Euler only rises and implicit Euler only
// falls, so the sign of Value identifies the scheme's character.
type EnergyTrend struct {
	name       string
	h          dynamo.Hamiltonian
	last       float64
	samples    int
	increasing int
	decreasing int
}

func NewEnergyTrend(h dynamo.Hamiltonian) *EnergyTrend {
	return &EnergyTrend{
		name: "energy_trend",
		h:    h,
	}
}

func (e *EnergyTrend) Name() string { return e.name }

func (e *EnergyTrend) Observe(x dynamo.State, t float64) {
	energy := e.h.Energy(x)
	if e.samples > 0 {
		switch {
		case energy > e.last:
			e.increasing++
		case energy < e.last:
			e.decreasing++
		}
	}
	e.last = energy
	e.samples++
}

// Value is (increasing - decreasing) / transitions, in [-1, 1].
func (e *EnergyTrend) Value() float64 {
	if e.samples < 2 {
		return 0
	}
	return float64(e.increasing-e.decreasing) / float64(e.samples-1)
}

func (e *EnergyTrend) Increasing() int { return e.increasing }
func (e *EnergyTrend) Decreasing() int { return e.decreasing }

func (e *EnergyTrend) Reset() {
	e.last = 0
	e.samples = 0
	e.increasing = 0
	e.decreasing = 0
}
