// Package trajectory caches solved initial-value problems as
// continuously-evaluable segments. A segment is solved once over a
// bounded horizon and then serves interpolated point queries until it
// goes stale, either because its horizon is exhausted or because an
// actuator value changed under it.
package trajectory

import (
	"fmt"
	"math"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Segment is a solved trajectory over [0, Horizon]. The interpolant
// is cubic Hermite between knots on a fixed grid, with knot
// derivatives taken from the dynamics, so Evaluate(0) reproduces the
// start state exactly and the curve is C0-continuous everywhere and
// C1-continuous at the knots.
type Segment struct {
	horizon float64
	elapsed float64
	step    float64
	knots   []dynamo.State
	derivs  []dynamo.State
}

// solveTol is the per-step error tolerance handed to adaptive
// integrators during a solve.
const solveTol = 1e-9

// Solve integrates dyn forward from x0 over [0, horizon] under the
// fixed control vector u, sampling knots every step time units. The
// returned segment has elapsed 0. Fails with ErrSolveDiverged if the
// integration produces NaN or Inf.
func Solve(dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, u dynamo.Control, horizon, step float64) (*Segment, error) {
	if len(x0) != dyn.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system wants %d",
			dynamo.ErrDimensionMismatch, len(x0), dyn.StateDim())
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %f", dynamo.ErrBadParameters, horizon)
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %f", dynamo.ErrBadParameters, step)
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("%w: start state", dynamo.ErrSolveDiverged)
	}

	// The control vector is frozen for the segment's lifetime; snapshot
	// it so later caller mutations cannot leak into the knots.
	u = u.Clone()

	n := int(math.Ceil(horizon / step))
	if n < 1 {
		n = 1
	}
	// Spread the grid so the last knot lands exactly on the horizon.
	h := horizon / float64(n)

	adaptive, _ := integ.(dynamo.AdaptiveIntegrator)

	knots := make([]dynamo.State, n+1)
	derivs := make([]dynamo.State, n+1)
	knots[0] = x0.Clone()
	derivs[0] = dyn.Derive(knots[0], u, 0)

	x := knots[0]
	for i := 1; i <= n; i++ {
		t := float64(i-1) * h
		if adaptive != nil {
			var err error
			x, _, err = adaptive.StepAdaptive(dyn, x, u, t, h, solveTol)
			if err != nil {
				return nil, fmt.Errorf("%w: at t=%.6f: %v", dynamo.ErrSolveDiverged, t+h, err)
			}
		} else {
			x = integ.Step(dyn, x, u, t, h)
		}
		if !x.IsValid() {
			return nil, fmt.Errorf("%w: at t=%.6f", dynamo.ErrSolveDiverged, t+h)
		}
		knots[i] = x
		derivs[i] = dyn.Derive(x, u, float64(i)*h)
	}

	return &Segment{
		horizon: horizon,
		step:    h,
		knots:   knots,
		derivs:  derivs,
	}, nil
}

// Degenerate returns a zero-horizon segment holding only the given
// state. It is stale for any positive dt, which forces a body's first
// tick to recompute.
func Degenerate(x0 dynamo.State) *Segment {
	return &Segment{
		knots: []dynamo.State{x0.Clone()},
	}
}

// Evaluate returns the interpolated state at elapsed time t. t must
// lie in [0, Horizon]; anything else is a DomainError.
func (s *Segment) Evaluate(t float64) (dynamo.State, error) {
	if t < 0 || t > s.horizon {
		return nil, &dynamo.DomainError{T: t, Horizon: s.horizon}
	}
	if t == 0 {
		return s.knots[0].Clone(), nil
	}

	i := int(t / s.step)
	if i >= len(s.knots)-1 {
		i = len(s.knots) - 2
	}
	frac := (t - float64(i)*s.step) / s.step

	p0, p1 := s.knots[i], s.knots[i+1]
	m0, m1 := s.derivs[i], s.derivs[i+1]

	f2 := frac * frac
	f3 := f2 * frac
	h00 := 2*f3 - 3*f2 + 1
	h10 := f3 - 2*f2 + frac
	h01 := -2*f3 + 3*f2
	h11 := f3 - f2

	out := make(dynamo.State, len(p0))
	for j := range out {
		out[j] = h00*p0[j] + h10*s.step*m0[j] + h01*p1[j] + h11*s.step*m1[j]
	}
	return out, nil
}

// IsStale reports whether advancing by dt would leave the solved
// horizon, or whether any owning actuator changed since the solve.
func (s *Segment) IsStale(dt float64, anyActuatorDirty bool) bool {
	return s.elapsed+dt > s.horizon || anyActuatorDirty
}

// Advance consumes dt from the segment. Callers must have checked
// staleness first; elapsed never leaves [0, Horizon].
func (s *Segment) Advance(dt float64) {
	s.elapsed += dt
}

func (s *Segment) Elapsed() float64 { return s.elapsed }

func (s *Segment) Horizon() float64 { return s.horizon }
