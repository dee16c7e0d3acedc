package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/trajectory"
)

// DefaultMaxSolveFailures is how many consecutive failed solves a
// body tolerates before a tick surfaces a SimulationFault.
const DefaultMaxSolveFailures = 3

// Body owns a state vector, its actuators, and the current trajectory
// segment. All access is serialized through a per-body mutex so ticks
// and commands never interleave on the same body while independent
// bodies progress concurrently.
type Body struct {
	mu sync.Mutex

	name      string
	dyn       dynamo.System
	integ     dynamo.Integrator
	state     dynamo.State
	actuators []*Actuator
	segment   *trajectory.Segment

	horizon     float64 // configured solve horizon
	nextHorizon float64 // halves on consecutive solve failures
	step        float64 // knot spacing for the segment solver

	failures    int
	maxFailures int
	clock       float64

	log zerolog.Logger
}

// NewBody validates its inputs and starts the body with a degenerate
// zero-horizon segment, so the first tick always solves.
func NewBody(name string, dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, horizon, step float64, actuators ...*Actuator) (*Body, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: body name must not be empty", dynamo.ErrBadParameters)
	}
	if dyn == nil || integ == nil {
		return nil, fmt.Errorf("%w: body %q needs a system and an integrator", dynamo.ErrBadParameters, name)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: body %q horizon must be positive, got %f", dynamo.ErrBadParameters, name, horizon)
	}
	if step <= 0 || step > horizon {
		return nil, fmt.Errorf("%w: body %q solve step %f outside (0, %f]", dynamo.ErrBadParameters, name, step, horizon)
	}
	if len(x0) != dyn.StateDim() {
		return nil, fmt.Errorf("%w: body %q state has %d components, system wants %d",
			dynamo.ErrDimensionMismatch, name, len(x0), dyn.StateDim())
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("%w: body %q initial state", dynamo.ErrBadParameters, name)
	}
	if len(actuators) != dyn.ControlDim() {
		return nil, fmt.Errorf("%w: body %q has %d actuators, system wants %d",
			dynamo.ErrDimensionMismatch, name, len(actuators), dyn.ControlDim())
	}

	return &Body{
		name:        name,
		dyn:         dyn,
		integ:       integ,
		state:       x0.Clone(),
		actuators:   actuators,
		segment:     trajectory.Degenerate(x0),
		horizon:     horizon,
		nextHorizon: horizon,
		step:        step,
		maxFailures: DefaultMaxSolveFailures,
		log:         zerolog.Nop(),
	}, nil
}

func (b *Body) Name() string { return b.name }

// System returns the dynamics driving this body.
func (b *Body) System() dynamo.System { return b.dyn }

// SetMaxSolveFailures adjusts the consecutive-failure budget.
func (b *Body) SetMaxSolveFailures(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > 0 {
		b.maxFailures = n
	}
}

// Command clamps value into the actuator's range and marks the body
// stale ahead of the next tick.
func (b *Body) Command(actuator int, value float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if actuator < 0 || actuator >= len(b.actuators) {
		return fmt.Errorf("%w: body %q actuator %d", ErrUnknownActuator, b.name, actuator)
	}
	act := b.actuators[actuator]
	act.Command(value)
	b.log.Debug().
		Str("actuator", act.Name()).
		Float64("desired", act.Desired()).
		Float64("current", act.Current()).
		Msg("command applied")
	return nil
}

// Tick advances the body by dt: recompute the segment if stale, then
// consume dt and extract the new state from the interpolant.
func (b *Body) Tick(dt float64) error {
	if dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrBadParameters, dt)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.segment.IsStale(dt, b.anyDirty()) {
		seg, err := trajectory.Solve(b.dyn, b.integ, b.state, b.controls(), b.nextHorizon, b.step)
		if err != nil {
			b.failures++
			b.nextHorizon = math.Max(b.nextHorizon/2, b.step)
			if b.failures >= b.maxFailures {
				b.log.Error().Err(err).Int("attempts", b.failures).Msg("solve fault")
				return &dynamo.SimulationFault{Body: b.name, Attempts: b.failures, Wrapped: err}
			}
			// Last known good state and segment are retained; the
			// solve is retried on the next tick with a halved horizon.
			b.log.Warn().Err(err).
				Int("attempt", b.failures).
				Float64("next_horizon", b.nextHorizon).
				Msg("solve failed, retaining previous state")
			return nil
		}
		b.segment = seg
		b.failures = 0
		b.nextHorizon = b.horizon
		for _, a := range b.actuators {
			a.clearDirty()
		}
		b.log.Debug().Float64("horizon", seg.Horizon()).Msg("segment recomputed")
	}

	// A dt larger than the freshly solved horizon is a caller contract
	// violation; refuse before elapsed can leave [0, T].
	if e := b.segment.Elapsed() + dt; e > b.segment.Horizon() {
		return &dynamo.DomainError{T: e, Horizon: b.segment.Horizon()}
	}

	b.segment.Advance(dt)
	x, err := b.segment.Evaluate(b.segment.Elapsed())
	if err != nil {
		return err
	}
	b.state = x
	b.clock += dt
	return nil
}

// Observe returns a read-only snapshot of the body's state.
func (b *Body) Observe() dynamo.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone()
}

// Project returns the system's derived observation when it defines
// one, otherwise the raw state.
func (b *Body) Project() dynamo.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.dyn.(dynamo.Projector); ok {
		return p.Project(b.state)
	}
	return b.state.Clone()
}

// Actuators reports the number of control channels.
func (b *Body) Actuators() int {
	return len(b.actuators)
}

// Actuator exposes a single actuator's clamped value and bounds.
func (b *Body) Actuator(i int) (*Actuator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.actuators) {
		return nil, fmt.Errorf("%w: body %q actuator %d", ErrUnknownActuator, b.name, i)
	}
	return b.actuators[i], nil
}

func (b *Body) snapshot() (dynamo.State, dynamo.Control, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone(), b.controls(), b.clock
}

// controls snapshots the current post-clamp value of every actuator.
// The dynamics are coupled, so a solve always uses all of them.
func (b *Body) controls() dynamo.Control {
	u := make(dynamo.Control, len(b.actuators))
	for i, a := range b.actuators {
		u[i] = a.Current()
	}
	return u
}

func (b *Body) anyDirty() bool {
	for _, a := range b.actuators {
		if a.Dirty() {
			return true
		}
	}
	return false
}
