package models

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

const (
	DroneHorizon = 5.0
	ThrustMin    = 0.0
	ThrustMax    = 15.0
)

// Drone is a planar two-engine body. State is (x, y, vx, vy, θ, ω);
// controls are the left and right engine thrusts. The engines couple
// through the shared orientation, so both thrusts always enter the
// derivative together.
type Drone struct {
	Mass    float64
	Inertia float64
	Arm     float64
	Gravity float64
}

func NewDrone(mass, inertia, arm, gravity float64) (*Drone, error) {
	switch {
	case mass <= 0:
		return nil, fmt.Errorf("%w: mass must be positive, got %f", dynamo.ErrBadParameters, mass)
	case inertia <= 0:
		return nil, fmt.Errorf("%w: inertia must be positive, got %f", dynamo.ErrBadParameters, inertia)
	case arm <= 0:
		return nil, fmt.Errorf("%w: arm radius must be positive, got %f", dynamo.ErrBadParameters, arm)
	case gravity <= 0:
		return nil, fmt.Errorf("%w: gravity must be positive, got %f", dynamo.ErrBadParameters, gravity)
	}
	return &Drone{Mass: mass, Inertia: inertia, Arm: arm, Gravity: gravity}, nil
}

func (d *Drone) StateDim() int   { return 6 }
func (d *Drone) ControlDim() int { return 2 }

func (d *Drone) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	vx, vy := x[2], x[3]
	theta, omega := x[4], x[5]

	var left, right float64
	if len(u) >= 2 {
		left, right = u[0], u[1]
	}

	sin, cos := math.Sincos(theta)
	thrust := left + right

	// Velocity-proportional drag opposes the net thrust/gravity force.
	force := mgl64.Vec2{thrust * sin, thrust*cos - d.Mass*d.Gravity}
	accel := force.Sub(mgl64.Vec2{vx, vy}).Mul(1.0 / d.Mass)

	torque := (left - right) * d.Arm
	alpha := torque / d.Inertia

	return dynamo.State{vx, vy, accel.X(), accel.Y(), omega, alpha}
}

// HoverThrust is the per-engine thrust that cancels gravity at level
// orientation and zero velocity.
func (d *Drone) HoverThrust() float64 {
	return d.Mass * d.Gravity / 2.0
}

func (d *Drone) Energy(x dynamo.State) float64 {
	y, vx, vy, omega := x[1], x[2], x[3], x[5]
	ke := 0.5 * d.Mass * (vx*vx + vy*vy)
	keRot := 0.5 * d.Inertia * omega * omega
	pe := d.Mass * d.Gravity * y
	return ke + keRot + pe
}
