package dynamo

import "math"

// State is a fixed-size vector of physical quantities (positions,
// velocities, orientations). It is owned exclusively by one body and
// replaced wholesale on each tick.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control holds the actuator values fed to a System's derivative. A
// control vector is snapshotted when a trajectory segment is solved
// and stays fixed for the lifetime of that segment.
type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// System is a deterministic, side-effect-free derivative function
// dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Projector is implemented by systems that expose a derived
// observation instead of the raw state vector, e.g. (cos θ, sin θ, ω)
// for an angle-based system.
type Projector interface {
	Project(x State) State
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every completed tick with the body's
// freshly extracted state.
type Observer interface {
	OnTick(body string, x State, u Control, t float64)
}
