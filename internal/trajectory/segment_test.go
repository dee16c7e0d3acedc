package trajectory

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/integrators"
)

type oscillator struct{}

func (o *oscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (o *oscillator) StateDim() int   { return 2 }
func (o *oscillator) ControlDim() int { return 0 }

type diverging struct{}

func (d *diverging) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{math.NaN()}
}

func (d *diverging) StateDim() int   { return 1 }
func (d *diverging) ControlDim() int { return 0 }

func solveOscillator(t *testing.T, horizon float64) *Segment {
	t.Helper()
	seg, err := Solve(&oscillator{}, integrators.NewRK4(), dynamo.State{1, 0}, nil, horizon, 0.001)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return seg
}

func TestSolveInitialCondition(t *testing.T) {
	x0 := dynamo.State{1, 0}
	seg, err := Solve(&oscillator{}, integrators.NewRK4(), x0, nil, 2.0, 0.001)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	got, err := seg.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate(0): %v", err)
	}
	if got[0] != x0[0] || got[1] != x0[1] {
		t.Errorf("interpolant(0) must equal start state exactly, got %v", got)
	}
}

func TestEvaluateAccuracy(t *testing.T) {
	seg := solveOscillator(t, 2.0)

	// Sample between knots; the analytic solution is (cos t, -sin t).
	for _, tt := range []float64{0.0005, 0.5, 0.50049, 1.0, 1.9995, 2.0} {
		got, err := seg.Evaluate(tt)
		if err != nil {
			t.Fatalf("Evaluate(%g): %v", tt, err)
		}
		if math.Abs(got[0]-math.Cos(tt)) > 1e-8 {
			t.Errorf("t=%g: position %.10f, want %.10f", tt, got[0], math.Cos(tt))
		}
		if math.Abs(got[1]+math.Sin(tt)) > 1e-8 {
			t.Errorf("t=%g: velocity %.10f, want %.10f", tt, got[1], -math.Sin(tt))
		}
	}
}

func TestEvaluateContinuity(t *testing.T) {
	seg := solveOscillator(t, 1.0)

	eps := 1e-9
	for _, tt := range []float64{0.0, 0.001, 0.37, 0.999} {
		a, err := seg.Evaluate(tt)
		if err != nil {
			t.Fatalf("Evaluate(%g): %v", tt, err)
		}
		b, err := seg.Evaluate(tt + eps)
		if err != nil {
			t.Fatalf("Evaluate(%g): %v", tt+eps, err)
		}
		if b.Sub(a).Norm() > 1e-6 {
			t.Errorf("discontinuity at t=%g: jump %g", tt, b.Sub(a).Norm())
		}
	}
}

func TestEvaluateOutOfDomain(t *testing.T) {
	seg := solveOscillator(t, 1.0)

	var domainErr *dynamo.DomainError
	for _, tt := range []float64{-0.001, 1.0001, 5.0} {
		_, err := seg.Evaluate(tt)
		if !errors.As(err, &domainErr) {
			t.Errorf("Evaluate(%g): expected DomainError, got %v", tt, err)
		}
	}
}

func TestIsStale(t *testing.T) {
	seg := solveOscillator(t, 1.0)

	if seg.IsStale(0.5, false) {
		t.Error("fresh segment should not be stale for dt within horizon")
	}
	if !seg.IsStale(1.5, false) {
		t.Error("dt beyond horizon should be stale")
	}
	if !seg.IsStale(0.5, true) {
		t.Error("dirty actuator should make segment stale regardless of dt")
	}

	seg.Advance(0.8)
	if seg.IsStale(0.2, false) {
		t.Error("elapsed+dt == horizon should not be stale")
	}
	if !seg.IsStale(0.3, false) {
		t.Error("elapsed+dt > horizon should be stale")
	}
}

func TestDegenerate(t *testing.T) {
	seg := Degenerate(dynamo.State{1, 2})

	if !seg.IsStale(0.01, false) {
		t.Error("degenerate segment must be stale for any positive dt")
	}

	got, err := seg.Evaluate(0)
	if err != nil {
		t.Fatalf("Evaluate(0): %v", err)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("degenerate segment should hold its state, got %v", got)
	}

	if _, err := seg.Evaluate(0.01); err == nil {
		t.Error("degenerate segment has no horizon to evaluate into")
	}
}

type drivenOscillator struct{}

func (d *drivenOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	f := 0.0
	if len(u) > 0 {
		f = u[0]
	}
	return dynamo.State{x[1], -x[0] + f}
}

func (d *drivenOscillator) StateDim() int   { return 2 }
func (d *drivenOscillator) ControlDim() int { return 1 }

func TestSolveSnapshotsControls(t *testing.T) {
	u := dynamo.Control{0.5}
	seg, err := Solve(&drivenOscillator{}, integrators.NewRK4(), dynamo.State{0, 0}, u, 1.0, 0.001)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	before, err := seg.Evaluate(0.75)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Mutating the caller's control buffer must not reach the segment.
	u[0] = -3.0

	after, err := seg.Evaluate(0.75)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if after[0] != before[0] || after[1] != before[1] {
		t.Errorf("segment changed after control mutation: %v vs %v", after, before)
	}
}

func TestSolveDiverged(t *testing.T) {
	_, err := Solve(&diverging{}, integrators.NewEuler(), dynamo.State{1}, nil, 1.0, 0.1)
	if !errors.Is(err, dynamo.ErrSolveDiverged) {
		t.Errorf("expected ErrSolveDiverged, got %v", err)
	}
}

func TestSolveValidation(t *testing.T) {
	dyn := &oscillator{}
	integ := integrators.NewRK4()

	if _, err := Solve(dyn, integ, dynamo.State{1}, nil, 1.0, 0.001); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := Solve(dyn, integ, dynamo.State{1, 0}, nil, 0, 0.001); !errors.Is(err, dynamo.ErrBadParameters) {
		t.Errorf("expected ErrBadParameters for zero horizon, got %v", err)
	}
	if _, err := Solve(dyn, integ, dynamo.State{1, 0}, nil, 1.0, -0.1); !errors.Is(err, dynamo.ErrBadParameters) {
		t.Errorf("expected ErrBadParameters for negative step, got %v", err)
	}
}

func TestAdvanceTracksElapsed(t *testing.T) {
	seg := solveOscillator(t, 5.0)

	if seg.Elapsed() != 0 {
		t.Errorf("fresh segment should have elapsed 0, got %g", seg.Elapsed())
	}
	seg.Advance(1.0)
	seg.Advance(2.5)
	if seg.Elapsed() != 3.5 {
		t.Errorf("expected elapsed 3.5, got %g", seg.Elapsed())
	}
	if seg.Horizon() != 5.0 {
		t.Errorf("expected horizon 5.0, got %g", seg.Horizon())
	}
}
