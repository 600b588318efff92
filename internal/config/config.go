package config

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/san-kum/odestep/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel         = "rc_circuit"
	DefaultStepper       = "implicit_euler"
	DefaultDuration      = 0.05
	DefaultSteps         = 50
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 10
	DefaultLogLevel      = "info"
)

type Config struct {
	Model    string  `yaml:"model"`
	Stepper  string  `yaml:"stepper"`
	Duration float64 `yaml:"duration"`
	Steps    int     `yaml:"steps"`
	// InitState overrides the model's default initial state when set.
	InitState []float64          `yaml:"init_state,omitempty"`
	Params    map[string]float64 `yaml:"params,omitempty"`
	Newton    NewtonConfig       `yaml:"newton"`
	LogLevel  string             `yaml:"log_level"`
}

type NewtonConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:    DefaultModel,
		Stepper:  DefaultStepper,
		Duration: DefaultDuration,
		Steps:    DefaultSteps,
		Newton: NewtonConfig{
			Tolerance:     DefaultTolerance,
			MaxIterations: DefaultMaxIterations,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML file on top of DefaultConfig, so omitted keys keep
// their defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file on top of a copy of base. Params keys present
// in the file replace those of base; the others are kept.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes cfg as YAML to w.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Tau is the step size implied by Duration and Steps.
func (c *Config) Tau() float64 {
	return c.Duration / float64(c.Steps)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.InitState != nil {
		out.InitState = append([]float64(nil), c.InitState...)
	}
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required: %w", dynamo.ErrParameterBounds)
	}
	if c.Stepper == "" {
		return fmt.Errorf("stepper is required: %w", dynamo.ErrParameterBounds)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d: %w", c.Steps, dynamo.ErrInvalidStep)
	}
	if c.Duration < 0 || math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("duration must be finite and non-negative, got %g: %w", c.Duration, dynamo.ErrInvalidStep)
	}
	if !(c.Newton.Tolerance > 0) {
		return fmt.Errorf("newton tolerance must be positive, got %g: %w", c.Newton.Tolerance, dynamo.ErrParameterBounds)
	}
	if c.Newton.MaxIterations <= 0 {
		return fmt.Errorf("newton max_iterations must be positive, got %d: %w", c.Newton.MaxIterations, dynamo.ErrParameterBounds)
	}
	for i, v := range c.InitState {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("init_state[%d] = %g: %w", i, v, dynamo.ErrInvalidState)
		}
	}
	return nil
}
