// Project: The Phillips Multiplier — a local-projection IV reproduction
// Reference: Barnichon & Mesters, "The Phillips Multiplier: Inflation-Unemployment
// Trade-offs from the Euro Area and US", Journal of Monetary Economics (2021)

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	cfgPath     string
	verbose     bool
	datasetFlag string
	outputFlag  string
	seedFlag    int64

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "phillips-multiplier",
	Short: "Local-projection IV estimation of the Phillips multiplier",
	Long: `phillips-multiplier reproduces the Phillips multiplier estimator on a
fixed quarterly macro dataset: it derives the instrument and surprise series,
builds lagged controls, runs the local-projection IV estimation with an
Anderson-Rubin sweep over candidate multiplier values, and renders the
diagnostic figures along with the result table.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full estimation pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("dataset") {
			cfg.Dataset = datasetFlag
		}
		if cmd.Flags().Changed("output") {
			cfg.OutputDir = outputFlag
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seedFlag
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return runPipeline(cfg)
	},
}

// runPipeline executes the five stages in order: load, derive (inside the
// loader), lag construction + estimation, then rendering.
func runPipeline(cfg Config) error {
	// 1. Load the selected input file
	path := cfg.DataFile()
	logger.Info("loading dataset",
		zap.String("dataset", cfg.Dataset),
		zap.String("file", path))

	ds, err := LoadDataset(path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	PrintDataset(ds)
	logger.Debug("dataset loaded",
		zap.Int("quarters", ds.Len()),
		zap.String("first", ds.Dates[0].String()),
		zap.String("last", ds.Dates[ds.Len()-1].String()))

	// 2. Estimate over all horizons
	opts := cfg.Options()
	logger.Info("estimating",
		zap.Int("lags", opts.Lags),
		zap.Int("horizon", opts.Horizon),
		zap.Float64("confidence", opts.Confidence),
		zap.Int64("seed", opts.Seed))

	res, err := PhillipsMultiplier(ds, opts)
	if err != nil {
		return fmt.Errorf("estimation: %w", err)
	}
	res.Summary()

	// 3. Write the result table and the figures
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	csvPath := filepath.Join(cfg.OutputDir, "phillips_multiplier.csv")
	if err := res.WriteCSV(csvPath); err != nil {
		return fmt.Errorf("write result table: %w", err)
	}
	logger.Info("result table written", zap.String("path", csvPath))

	if err := RenderFigures(ds, res, cfg.OutputDir); err != nil {
		return fmt.Errorf("render figures: %w", err)
	}
	logger.Info("figures written",
		zap.String("dir", cfg.OutputDir),
		zap.Int("count", len(FigureFiles)))

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringVar(&datasetFlag, "dataset", DatasetBaseline, "input dataset: baseline or extended")
	runCmd.Flags().StringVar(&outputFlag, "output", "output", "directory for figures and the result CSV")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "bootstrap RNG seed (0 = from config)")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
