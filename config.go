// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dataset selectors. Each maps to one of the two input files.
const (
	DatasetBaseline = "baseline"
	DatasetExtended = "extended"
)

var datasetFiles = map[string]string{
	DatasetBaseline: "data_baseline.xlsx",
	DatasetExtended: "data_extended.xlsx",
}

// GridConfig mirrors GridSpec in the config file.
type GridConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// Config holds every knob of the pipeline. All fields have defaults; a YAML
// config file overrides them, and CLI flags override the file.
type Config struct {
	// Which of the two input files to load: "baseline" or "extended"
	Dataset string `yaml:"dataset"`
	// Directory holding the input files
	DataDir string `yaml:"data_dir"`
	// Directory where figures and the result CSV are written
	OutputDir string `yaml:"output_dir"`

	// Estimation parameters
	Lags          int        `yaml:"lags"`
	Horizon       int        `yaml:"horizon"`
	Grid          GridConfig `yaml:"grid"`
	Confidence    float64    `yaml:"confidence"`
	Seed          int64      `yaml:"seed"`
	BootstrapReps int        `yaml:"bootstrap_reps"`
}

// DefaultConfig returns the parameterization used in the reproduction:
// four lags, a five-year horizon, a (-3, 3) candidate grid, and 90% bands.
func DefaultConfig() Config {
	return Config{
		Dataset:   DatasetBaseline,
		DataDir:   "data",
		OutputDir: "output",

		Lags:    4,
		Horizon: 20,
		Grid: GridConfig{
			Min:  -3.0,
			Max:  3.0,
			Step: 0.01,
		},
		Confidence:    0.90,
		Seed:          12345,
		BootstrapReps: 500,
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error when path is empty; an explicitly named file must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration before the pipeline starts.
func (c Config) Validate() error {
	if _, ok := datasetFiles[c.Dataset]; !ok {
		return fmt.Errorf("unknown dataset %q (options: %s, %s)", c.Dataset, DatasetBaseline, DatasetExtended)
	}
	if c.Lags <= 0 {
		return fmt.Errorf("lags must be > 0, got %d", c.Lags)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be >= 0, got %d", c.Horizon)
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("confidence must be in (0,1), got %f", c.Confidence)
	}
	if c.Grid.Step <= 0 {
		return fmt.Errorf("grid step must be > 0, got %f", c.Grid.Step)
	}
	if c.Grid.Min >= c.Grid.Max {
		return fmt.Errorf("grid min %f must be below grid max %f", c.Grid.Min, c.Grid.Max)
	}
	if c.BootstrapReps <= 0 {
		return fmt.Errorf("bootstrap_reps must be > 0, got %d", c.BootstrapReps)
	}
	return nil
}

// DataFile returns the path of the selected input file.
func (c Config) DataFile() string {
	return filepath.Join(c.DataDir, datasetFiles[c.Dataset])
}

// Options converts the config into estimator options.
func (c Config) Options() PMOptions {
	return PMOptions{
		Lags:          c.Lags,
		Horizon:       c.Horizon,
		Grid:          GridSpec{Min: c.Grid.Min, Max: c.Grid.Max, Step: c.Grid.Step},
		Confidence:    c.Confidence,
		Seed:          c.Seed,
		BootstrapReps: c.BootstrapReps,
	}
}
