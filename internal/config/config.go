package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

const (
	DefaultDt        = 0.05
	DefaultDuration  = 10.0
	DefaultSolveStep = 0.001
	DefaultGravity   = 9.81
	DefaultMass      = 1.0
	DefaultInertia   = 0.1
	DefaultArm       = 0.25
)

type Config struct {
	Body       string  `yaml:"body"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`

	// Horizon 0 means "use the model's default".
	Horizon   float64 `yaml:"horizon"`
	SolveStep float64 `yaml:"solve_step"`

	Gravity float64 `yaml:"gravity"`
	Mass    float64 `yaml:"mass"`
	Inertia float64 `yaml:"inertia"`
	Arm     float64 `yaml:"arm"`

	MaxSolveFailures int `yaml:"max_solve_failures"`

	InitState InitStateConfig `yaml:"init_state"`
}

type InitStateConfig struct {
	Theta float64 `yaml:"theta"`
	Omega float64 `yaml:"omega"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	VX    float64 `yaml:"vx"`
	VY    float64 `yaml:"vy"`
}

func DefaultConfig() *Config {
	return &Config{
		Body:       "pendulum",
		Integrator: "rk4",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		SolveStep:  DefaultSolveStep,
		Gravity:    DefaultGravity,
		Mass:       DefaultMass,
		Inertia:    DefaultInertia,
		Arm:        DefaultArm,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrBadParameters, c.Dt)
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrBadParameters, c.Duration)
	case c.SolveStep <= 0:
		return fmt.Errorf("%w: solve_step must be positive, got %f", dynamo.ErrBadParameters, c.SolveStep)
	case c.Horizon < 0:
		return fmt.Errorf("%w: horizon must not be negative, got %f", dynamo.ErrBadParameters, c.Horizon)
	case c.MaxSolveFailures < 0:
		return fmt.Errorf("%w: max_solve_failures must not be negative, got %d", dynamo.ErrBadParameters, c.MaxSolveFailures)
	}
	return nil
}

// Normalized returns a copy with zero-valued physical fields filled
// from the defaults, so sparse presets and config files validate and
// build cleanly. Horizon 0 is left alone; it means "use the model's
// default".
func (c *Config) Normalized() *Config {
	out := *c
	if out.SolveStep == 0 {
		out.SolveStep = DefaultSolveStep
	}
	if out.Gravity == 0 {
		out.Gravity = DefaultGravity
	}
	if out.Mass == 0 {
		out.Mass = DefaultMass
	}
	if out.Inertia == 0 {
		out.Inertia = DefaultInertia
	}
	if out.Arm == 0 {
		out.Arm = DefaultArm
	}
	return &out
}

// GetInitState assembles the initial state vector for the configured
// body kind.
func (c *Config) GetInitState() []float64 {
	switch c.Body {
	case "drone":
		return []float64{c.InitState.X, c.InitState.Y, c.InitState.VX, c.InitState.VY, c.InitState.Theta, c.InitState.Omega}
	default:
		return []float64{c.InitState.Theta, c.InitState.Omega}
	}
}
