package models

import (
	"fmt"
	"math"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Pendulum actuator and cache defaults. The horizon is a tuning
// constant, not part of the physics: long enough that recomputes are
// rare relative to the tick rate.
const (
	PendulumHorizon = 10.0
	TorqueMin       = -2.0
	TorqueMax       = 2.0

	DefaultGravity = 9.81
)

// Pendulum is a damped pendulum under gravity and a held control
// torque. State is (θ, ω); the single control is τ.
type Pendulum struct {
	Gravity float64
}

func NewPendulum(gravity float64) (*Pendulum, error) {
	if gravity <= 0 {
		return nil, fmt.Errorf("%w: gravity must be positive, got %f", dynamo.ErrBadParameters, gravity)
	}
	return &Pendulum{Gravity: gravity}, nil
}

func (p *Pendulum) StateDim() int   { return 2 }
func (p *Pendulum) ControlDim() int { return 1 }

func (p *Pendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta := x[0]
	omega := x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}

	alpha := -(1.5*p.Gravity*math.Cos(theta) + 3*torque) - 0.5*omega

	return dynamo.State{omega, alpha}
}

// Project exposes the observation (cos θ, sin θ, ω), which avoids the
// angle-wrap discontinuity in raw θ.
func (p *Pendulum) Project(x dynamo.State) dynamo.State {
	sin, cos := math.Sincos(x[0])
	return dynamo.State{cos, sin, x[1]}
}
