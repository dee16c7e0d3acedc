// Package registry maps configuration names to explicit body and
// integrator factories. Nothing here runs at package load time; a
// caller always constructs its own simulation instances.
package registry

import (
	"fmt"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/integrators"
	"github.com/san-kum/hybridsim/internal/models"
	"github.com/san-kum/hybridsim/internal/sim"
)

type bodyBuilder func(cfg *config.Config, integ dynamo.Integrator) (*sim.Body, error)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	bodies      map[string]bodyBuilder
}

func New() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		bodies:      make(map[string]bodyBuilder),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.bodies["pendulum"] = buildPendulum
	r.bodies["drone"] = buildDrone

	return r
}

func (r *Registry) Integrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// Build constructs a ready-to-register body from a config, filling
// unset numeric fields with defaults.
func (r *Registry) Build(cfg *config.Config) (*sim.Body, error) {
	build, ok := r.bodies[cfg.Body]
	if !ok {
		return nil, fmt.Errorf("unknown body: %s", cfg.Body)
	}

	integName := cfg.Integrator
	if integName == "" {
		integName = "rk4"
	}
	integ, err := r.Integrator(integName)
	if err != nil {
		return nil, err
	}

	body, err := build(cfg.Normalized(), integ)
	if err != nil {
		return nil, err
	}
	if cfg.MaxSolveFailures > 0 {
		body.SetMaxSolveFailures(cfg.MaxSolveFailures)
	}
	return body, nil
}

func (r *Registry) ListBodies() []string {
	names := make([]string, 0, len(r.bodies))
	for name := range r.bodies {
		names = append(names, name)
	}
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	return names
}

func buildPendulum(cfg *config.Config, integ dynamo.Integrator) (*sim.Body, error) {
	p, err := models.NewPendulum(cfg.Gravity)
	if err != nil {
		return nil, err
	}
	torque, err := sim.NewActuator("torque", models.TorqueMin, models.TorqueMax)
	if err != nil {
		return nil, err
	}
	horizon := cfg.Horizon
	if horizon == 0 {
		horizon = models.PendulumHorizon
	}
	return sim.NewBody("pendulum", p, integ, cfg.GetInitState(), horizon, cfg.SolveStep, torque)
}

func buildDrone(cfg *config.Config, integ dynamo.Integrator) (*sim.Body, error) {
	d, err := models.NewDrone(cfg.Mass, cfg.Inertia, cfg.Arm, cfg.Gravity)
	if err != nil {
		return nil, err
	}
	left, err := sim.NewActuator("left", models.ThrustMin, models.ThrustMax)
	if err != nil {
		return nil, err
	}
	right, err := sim.NewActuator("right", models.ThrustMin, models.ThrustMax)
	if err != nil {
		return nil, err
	}
	horizon := cfg.Horizon
	if horizon == 0 {
		horizon = models.DroneHorizon
	}
	return sim.NewBody("drone", d, integ, cfg.GetInitState(), horizon, cfg.SolveStep, left, right)
}
