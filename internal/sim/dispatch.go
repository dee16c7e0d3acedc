package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Role identifies one side of a message routing. The set is closed:
// every valid (sender, receiver, payload) triple is enumerated in
// Dispatch, and anything else is rejected.
type Role uint8

const (
	RoleAgent Role = iota
	RoleController
	RoleBody
	RoleActuator
)

func (r Role) String() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleController:
		return "controller"
	case RoleBody:
		return "body"
	case RoleActuator:
		return "actuator"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

type PayloadKind uint8

const (
	PayloadCommand PayloadKind = iota
	PayloadTick
	PayloadObserve
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadCommand:
		return "command"
	case PayloadTick:
		return "tick"
	case PayloadObserve:
		return "observe"
	default:
		return fmt.Sprintf("payload(%d)", uint8(k))
	}
}

// Envelope is a routed message. Which fields are meaningful depends
// on Kind: Value for commands, Dt for ticks.
type Envelope struct {
	From     Role
	To       Role
	Kind     PayloadKind
	Body     string
	Actuator int
	Value    float64
	Dt       float64
}

var ErrBadRoute = errors.New("sim: no route for sender/receiver/payload")

// Dispatch routes an envelope to the controller operation its
// (sender, receiver, payload) triple names. Observe replies with a
// state; the other routes reply with nil.
func (c *Controller) Dispatch(env Envelope) (dynamo.State, error) {
	switch {
	case env.From == RoleAgent && env.To == RoleActuator && env.Kind == PayloadCommand:
		return nil, c.Receive(env.Body, env.Actuator, env.Value)
	case env.From == RoleController && env.To == RoleBody && env.Kind == PayloadTick:
		return nil, c.Tick(env.Body, env.Dt)
	case env.From == RoleAgent && env.To == RoleBody && env.Kind == PayloadObserve:
		return c.Observe(env.Body)
	default:
		return nil, fmt.Errorf("%w: %s -> %s (%s)", ErrBadRoute, env.From, env.To, env.Kind)
	}
}
