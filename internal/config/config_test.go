package config

import (
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Model = "gmc"
	cfg.ModelDatabase = "model.sqlite"
	cfg.StateDatabase = "state.sqlite"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Simulations <= 0 {
		t.Error("simulations should be positive")
	}
	if cfg.Threads <= 0 {
		t.Error("threads should be positive")
	}
	if cfg.StepCutoff <= 0 {
		t.Error("step cutoff should be positive")
	}
	if cfg.TimeCutoff <= 0 {
		t.Error("time cutoff should be positive")
	}
	if cfg.Solver != "linear" {
		t.Errorf("default solver %q, want linear", cfg.Solver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown model", func(c *Config) { c.Model = "ode" }},
		{"missing model database", func(c *Config) { c.ModelDatabase = "" }},
		{"missing state database", func(c *Config) { c.StateDatabase = "" }},
		{"zero simulations", func(c *Config) { c.Simulations = 0 }},
		{"negative threads", func(c *Config) { c.Threads = -2 }},
		{"zero step cutoff", func(c *Config) { c.StepCutoff = 0 }},
		{"negative time cutoff", func(c *Config) { c.TimeCutoff = -1 }},
		{"unknown solver", func(c *Config) { c.Solver = "fenwick" }},
		{"negative dependency threshold", func(c *Config) { c.DependencyThreshold = -1 }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	cfg := validConfig()
	cfg.Model = "npmc"
	cfg.Simulations = 64
	cfg.BaseSeed = 1000
	cfg.TimeCutoff = 12.5
	cfg.Solver = "tree"

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
