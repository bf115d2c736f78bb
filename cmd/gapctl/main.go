package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"primegap/pkg/config"
	"primegap/pkg/model"
)

var (
	verbose     bool
	configPath  string
	calibration string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gapctl",
	Short: "gapctl - piecewise prime-gap predictor",
	Long: `gapctl predicts an upper envelope for the gap that follows a prime.

Small indices are handled by the sieve field, larger ones by the entropy field.
Both branches are scaled by a named calibration; see 'gapctl calibrations'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		zcfg := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = zcfg.Build()
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

var predictCmd = &cobra.Command{
	Use:   "predict [index] [value]",
	Short: "Predict the gap after the prime P_index = value",
	Example: `  gapctl predict 400 2753
  gapctl predict 999 7901 --calibration lgo-model`,
	Args: cobra.ExactArgs(2),
	RunE: runPredict,
}

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Run the predictor over the first N primes and report coverage",
	Long: `Walks the first N primes in order, predicts each gap and compares it with
the true distance to the next prime. The last prime has no known gap.

With --db every record is appended to a SQLite run log under a fresh run id.`,
	RunE: runSurvey,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the reference gap records against the active calibration",
	RunE:  runVerify,
}

var calibrationsCmd = &cobra.Command{
	Use:   "calibrations",
	Short: "List built-in and configured calibrations",
	RunE:  runCalibrations,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP and the binary TCP protocol",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: configs/primegap.yaml)")
	rootCmd.PersistentFlags().StringVar(&calibration, "calibration", "", "Calibration name (default from config)")

	surveyCmd.Flags().IntVarP(&surveyCount, "count", "n", 0, "Number of primes (default from config)")
	surveyCmd.Flags().StringVarP(&surveyFormat, "format", "f", "text", "Report format: text, jsonl, csv")
	surveyCmd.Flags().IntSliceVar(&surveyCheckpoints, "checkpoints", nil, "Only report these prime indices")
	surveyCmd.Flags().StringVar(&surveyDB, "db", "", "SQLite run log (default from config)")

	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.Flags().StringVar(&tcpAddr, "tcp-addr", "", "TCP listen address (default from config)")

	rootCmd.AddCommand(predictCmd, surveyCmd, verifyCmd, calibrationsCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func activeModel() (*model.GapModel, error) {
	cal, err := cfg.Calibration(calibration)
	if err != nil {
		return nil, err
	}
	return model.NewGapModel(cal)
}
