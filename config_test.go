// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got: %v", err)
	}
}

func TestLoadConfigMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Error("empty path should return the defaults unchanged")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `dataset: extended
lags: 8
horizon: 12
confidence: 0.95
grid:
  min: -2
  max: 2
  step: 0.02
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Dataset != DatasetExtended {
		t.Errorf("dataset = %q, want extended", cfg.Dataset)
	}
	if cfg.Lags != 8 || cfg.Horizon != 12 {
		t.Errorf("lags/horizon = %d/%d, want 8/12", cfg.Lags, cfg.Horizon)
	}
	if !almostEqual(cfg.Grid.Step, 0.02, 1e-12) {
		t.Errorf("grid step = %v, want 0.02", cfg.Grid.Step)
	}
	// Fields absent from the file keep their defaults
	if cfg.Seed != DefaultConfig().Seed {
		t.Errorf("seed = %d, want default %d", cfg.Seed, DefaultConfig().Seed)
	}
	if cfg.OutputDir != DefaultConfig().OutputDir {
		t.Errorf("output dir = %q, want default", cfg.OutputDir)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a named but missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("lags: [not an int"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.Dataset = "mystery" },
		func(c *Config) { c.Lags = 0 },
		func(c *Config) { c.Horizon = -1 },
		func(c *Config) { c.Confidence = 0 },
		func(c *Config) { c.Confidence = 1 },
		func(c *Config) { c.Grid.Step = 0 },
		func(c *Config) { c.Grid.Min = 5; c.Grid.Max = -5 },
		func(c *Config) { c.BootstrapReps = 0 },
	}
	for i, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, cfg)
		}
	}
}

func TestConfigDataFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "data"

	cfg.Dataset = DatasetBaseline
	if got := cfg.DataFile(); got != filepath.Join("data", "data_baseline.xlsx") {
		t.Errorf("baseline data file = %q", got)
	}
	cfg.Dataset = DatasetExtended
	if got := cfg.DataFile(); got != filepath.Join("data", "data_extended.xlsx") {
		t.Errorf("extended data file = %q", got)
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.Options()

	if opts.Lags != cfg.Lags || opts.Horizon != cfg.Horizon {
		t.Error("options do not mirror the config")
	}
	if opts.Grid.Min != cfg.Grid.Min || opts.Grid.Max != cfg.Grid.Max || opts.Grid.Step != cfg.Grid.Step {
		t.Error("grid not mapped into options")
	}
	if opts.Confidence != cfg.Confidence || opts.Seed != cfg.Seed || opts.BootstrapReps != cfg.BootstrapReps {
		t.Error("inference parameters not mapped into options")
	}
}
