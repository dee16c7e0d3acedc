package metrics

import (
	"math"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Hamiltonian is implemented by systems that can report total
// mechanical energy for a state.
type Hamiltonian interface {
	Energy(x dynamo.State) float64
}

// EnergyDrift tracks the maximum relative energy deviation from the
// first observed state. Only meaningful for systems implementing
// Hamiltonian; otherwise it reports 0.
type EnergyDrift struct {
	dyn           dynamo.System
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{dyn: dyn}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	ec, ok := e.dyn.(Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
