package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSimulations         = 1
	DefaultThreads             = 1
	DefaultStepCutoff          = 1000000
	DefaultSolver              = "linear"
	DefaultDependencyThreshold = 10
)

// Config is one dispatch: which model databases to read, how many
// trajectories to run, and when each trajectory stops.
type Config struct {
	Model         string  `yaml:"model"`
	ModelDatabase string  `yaml:"model_database"`
	StateDatabase string  `yaml:"state_database"`
	Simulations   int     `yaml:"simulations"`
	BaseSeed      uint64  `yaml:"base_seed"`
	Threads       int     `yaml:"threads"`
	StepCutoff    int     `yaml:"step_cutoff"`
	TimeCutoff    float64 `yaml:"time_cutoff"`
	Solver        string  `yaml:"solver"`

	// GMC only: firings before a reaction's dependency node is computed.
	DependencyThreshold int `yaml:"dependency_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Simulations:         DefaultSimulations,
		Threads:             DefaultThreads,
		StepCutoff:          DefaultStepCutoff,
		TimeCutoff:          math.MaxFloat64,
		Solver:              DefaultSolver,
		DependencyThreshold: DefaultDependencyThreshold,
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
	if c.Model != "gmc" && c.Model != "npmc" {
		return fmt.Errorf("unknown model: %q", c.Model)
	}
	if c.ModelDatabase == "" {
		return fmt.Errorf("model database path is required")
	}
	if c.StateDatabase == "" {
		return fmt.Errorf("state database path is required")
	}
	if c.Simulations <= 0 {
		return fmt.Errorf("simulations must be positive, got %d", c.Simulations)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.StepCutoff <= 0 {
		return fmt.Errorf("step cutoff must be positive, got %d", c.StepCutoff)
	}
	if c.TimeCutoff <= 0 {
		return fmt.Errorf("time cutoff must be positive, got %f", c.TimeCutoff)
	}
	if c.Solver != "linear" && c.Solver != "tree" {
		return fmt.Errorf("unknown solver: %q", c.Solver)
	}
	if c.Model == "gmc" && c.DependencyThreshold < 0 {
		return fmt.Errorf("dependency threshold must be non-negative, got %d", c.DependencyThreshold)
	}
	return nil
}
