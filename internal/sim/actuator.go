package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Actuator is one independently-commandable scalar control channel.
// Commands are clamped to [min, max]; out-of-range input is policy,
// not an error. The dirty flag marks that the value changed since the
// owning body's segment was last solved.
//
// An Actuator is only ever touched under its owning body's lock.
type Actuator struct {
	name     string
	min, max float64
	current  float64
	desired  float64
	dirty    bool
}

func NewActuator(name string, min, max float64) (*Actuator, error) {
	if min >= max {
		return nil, fmt.Errorf("%w: actuator %q bounds [%f, %f]", dynamo.ErrBadParameters, name, min, max)
	}
	return &Actuator{name: name, min: min, max: max}, nil
}

// Command stores the clamped value and marks the actuator dirty. The
// unclamped value is kept as desired for diagnostics.
func (a *Actuator) Command(value float64) {
	a.desired = value
	a.current = math.Max(a.min, math.Min(a.max, value))
	a.dirty = true
}

func (a *Actuator) Name() string     { return a.name }
func (a *Actuator) Min() float64     { return a.min }
func (a *Actuator) Max() float64     { return a.max }
func (a *Actuator) Current() float64 { return a.current }
func (a *Actuator) Desired() float64 { return a.desired }
func (a *Actuator) Dirty() bool      { return a.dirty }

func (a *Actuator) clearDirty() { a.dirty = false }
