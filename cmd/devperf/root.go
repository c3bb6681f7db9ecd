package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/YuminosukeSato/devperf/config"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/YuminosukeSato/devperf/telemetry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	logLevel    string
	metricsFile string

	// Run state, set up before every command
	cfg    *config.Config
	runID  string
	telem  *telemetry.Metrics
	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "devperf",
	Short: "Developer productivity data cleaning, reporting and model comparison",
	Long: `devperf loads a developer productivity CSV, repairs its numeric columns,
writes grouped analyses and charts, and compares KNN, SVR, decision tree and
random forest regressors on Task_Success_Rate.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupRun,
	PersistentPostRunE: flushMetrics,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, styles.Error.Render("✗ Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./devperf.yaml or ~/.devperf/devperf.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile (overrides config)")
}

func setupRun(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	runID = uuid.NewString()
	log.SetProvider(log.NewProvider(os.Stderr, cfg.LogLevel(), log.Format(cfg.Log.Format)))
	logger = log.GetLoggerWithName("cli").With(log.RunIDKey, runID)
	telem = telemetry.New(runID)

	logger.Debug("Run started", "command", cmd.Name())
	return nil
}

// applyFlagOverrides copies explicitly set persistent flags onto c.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if f.Changed("metrics-file") {
		c.Metrics.File = metricsFile
	}
}

func flushMetrics(_ *cobra.Command, _ []string) error {
	if cfg == nil || cfg.Metrics.File == "" {
		return nil
	}
	if err := telem.WriteTextfile(cfg.Metrics.File); err != nil {
		return err
	}
	logger.Debug("Metrics written", log.PathKey, cfg.Metrics.File)
	return nil
}
