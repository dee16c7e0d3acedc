package config

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"hanging": {
			Body: "pendulum", Integrator: "rk4", Dt: 0.05, Duration: 20.0,
			InitState: InitStateConfig{Theta: -1.5707963267948966, Omega: 0.0},
		},
		"swing": {
			Body: "pendulum", Integrator: "rk4", Dt: 0.05, Duration: 20.0,
			InitState: InitStateConfig{Theta: 0.8, Omega: 0.0},
		},
		"spinning": {
			Body: "pendulum", Integrator: "rk45", Dt: 0.02, Duration: 30.0,
			InitState: InitStateConfig{Theta: 0.1, Omega: 6.0},
		},
	},
	"drone": {
		"hover": {
			Body: "drone", Integrator: "rk4", Dt: 0.05, Duration: 30.0,
			InitState: InitStateConfig{X: 0, Y: 5, Theta: 0.0},
		},
		"drop": {
			Body: "drone", Integrator: "rk4", Dt: 0.02, Duration: 5.0,
			InitState: InitStateConfig{X: 0, Y: 10, Theta: 0.0},
		},
		"tilt": {
			Body: "drone", Integrator: "rk45", Dt: 0.02, Duration: 20.0,
			InitState: InitStateConfig{X: 0, Y: 5, Theta: 0.3},
		},
	},
}

func GetPreset(body, preset string) *Config {
	bodyPresets, ok := Presets[body]
	if !ok {
		return nil
	}
	cfg, ok := bodyPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(body string) []string {
	bodyPresets, ok := Presets[body]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(bodyPresets))
	for name := range bodyPresets {
		names = append(names, name)
	}
	return names
}
