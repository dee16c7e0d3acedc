// Package sim orchestrates the invalidate→recompute→advance→extract
// cycle for physically simulated bodies. A Controller owns a set of
// independent bodies; each body serializes its own ticks and commands
// through a per-body lock so there is no process-wide contention.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

var (
	ErrUnknownBody     = errors.New("sim: unknown body")
	ErrUnknownActuator = errors.New("sim: unknown actuator")
	ErrDuplicateBody   = errors.New("sim: body already registered")
)

type Controller struct {
	mu        sync.RWMutex
	bodies    map[string]*Body
	observers []dynamo.Observer
	metrics   []dynamo.Metric
	log       zerolog.Logger
}

func NewController(log zerolog.Logger) *Controller {
	return &Controller{
		bodies: make(map[string]*Body),
		log:    log,
	}
}

func (c *Controller) Register(b *Body) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bodies[b.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateBody, b.Name())
	}
	b.log = c.log.With().Str("body", b.Name()).Logger()
	c.bodies[b.Name()] = b
	return nil
}

func (c *Controller) Body(name string) (*Body, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bodies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBody, name)
	}
	return b, nil
}

func (c *Controller) AddObserver(o dynamo.Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Controller) AddMetric(m dynamo.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, m)
}

// Receive routes a control command to one actuator of one body. The
// command itself never fails; only an unknown body or actuator does.
func (c *Controller) Receive(body string, actuator int, value float64) error {
	b, err := c.Body(body)
	if err != nil {
		return err
	}
	return b.Command(actuator, value)
}

// Tick advances one body by dt and notifies metrics and observers
// with the freshly extracted state.
func (c *Controller) Tick(body string, dt float64) error {
	b, err := c.Body(body)
	if err != nil {
		return err
	}
	if err := b.Tick(dt); err != nil {
		return err
	}
	c.notify(b)
	return nil
}

// TickAll advances every registered body by dt concurrently. Bodies
// are independent; the per-body locks are the only serialization. A
// failing body never blocks notification for the bodies that ticked;
// all failures are joined into the returned error.
func (c *Controller) TickAll(dt float64) error {
	c.mu.RLock()
	bodies := make([]*Body, 0, len(c.bodies))
	for _, b := range c.bodies {
		bodies = append(bodies, b)
	}
	c.mu.RUnlock()

	tickErrs := make([]error, len(bodies))
	var wg sync.WaitGroup
	for i, b := range bodies {
		wg.Add(1)
		go func(idx int, b *Body) {
			defer wg.Done()
			tickErrs[idx] = b.Tick(dt)
		}(i, b)
	}
	wg.Wait()

	var errs []error
	for i, err := range tickErrs {
		if err != nil {
			errs = append(errs, fmt.Errorf("body %q: %w", bodies[i].Name(), err))
			continue
		}
		c.notify(bodies[i])
	}
	return errors.Join(errs...)
}

// Observe returns a read-only state snapshot; safe to call at any
// time, never mid-recompute.
func (c *Controller) Observe(body string) (dynamo.State, error) {
	b, err := c.Body(body)
	if err != nil {
		return nil, err
	}
	return b.Observe(), nil
}

// Project returns the body's derived observation, e.g.
// (cos θ, sin θ, ω) for the pendulum.
func (c *Controller) Project(body string) (dynamo.State, error) {
	b, err := c.Body(body)
	if err != nil {
		return nil, err
	}
	return b.Project(), nil
}

func (c *Controller) notify(b *Body) {
	x, u, t := b.snapshot()

	c.mu.RLock()
	metrics := c.metrics
	observers := c.observers
	c.mu.RUnlock()

	for _, m := range metrics {
		m.Observe(x, u, t)
	}
	for _, o := range observers {
		o.OnTick(b.Name(), x, u, t)
	}
}
