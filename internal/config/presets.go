package config

import (
	"math"
	"sort"
)

func preset(model, stepper string, duration float64, steps int, init []float64, params map[string]float64) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	cfg.Stepper = stepper
	cfg.Duration = duration
	cfg.Steps = steps
	cfg.InitState = init
	cfg.Params = params
	return cfg
}

var Presets = map[string]map[string]*Config{
	"rc_circuit": {
		// 2.5 periods of the 50 Hz source
		"exercise": preset("rc_circuit", "implicit_euler", 0.05, 50, []float64{0, 0}, nil),
		"fine":     preset("rc_circuit", "crank_nicolson", 0.05, 500, []float64{0, 0}, nil),
	},
	"mass_spring": {
		"two_periods": preset("mass_spring", "crank_nicolson", 4*math.Pi, 500, []float64{1, 0}, nil),
		"explicit":    preset("mass_spring", "explicit_euler", 4*math.Pi, 500, []float64{1, 0}, nil),
		"implicit":    preset("mass_spring", "implicit_euler", 4*math.Pi, 500, []float64{1, 0}, nil),
	},
	"pendulum": {
		"inverted": preset("pendulum", "crank_nicolson", 15, 1000, []float64{math.Pi + 0.001, 0}, nil),
		"small":    preset("pendulum", "crank_nicolson", 20, 2000, []float64{0.2, 0}, nil),
	},
	"decay": {
		"unit":  preset("decay", "explicit_euler", 1, 10, []float64{1}, nil),
		"stiff": preset("decay", "implicit_euler", 1, 10, []float64{1}, map[string]float64{"rate": 50}),
	},
	"spring_network": {
		"chain": preset("spring_network", "crank_nicolson", 5, 1000, nil, nil),
	},
	"vanderpol": {
		"limit_cycle": preset("vanderpol", "rk4", 20, 2000, []float64{2, 0}, nil),
		"stiff":       preset("vanderpol", "implicit_euler", 300, 30000, []float64{2, 0}, map[string]float64{"mu": 100}),
	},
	"lorenz": {
		"attractor": preset("lorenz", "rk4", 30, 3000, []float64{1, 1, 1}, nil),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names of a model in sorted order.
func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetModels returns the models that have presets, sorted.
func PresetModels() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
