// Package main provides the CLI entry point for looptime, which times a
// million-iteration empty loop and prints the elapsed seconds.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weiihann/looptime/hostinfo"
	"github.com/weiihann/looptime/metrics"
	"github.com/weiihann/looptime/report"
	"github.com/weiihann/looptime/spin"
	"github.com/weiihann/looptime/stopwatch"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level, viper.New(), stopwatch.SystemClock{})
	if err := root.Execute(); err != nil {
		logger.Error("looptime failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(
	logger *slog.Logger,
	level *slog.LevelVar,
	v *viper.Viper,
	clock stopwatch.Clock,
) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "looptime",
		Short: "Time a million-iteration empty loop",
		Long: `Looptime reads a monotonic clock, runs an empty loop one million
times, reads the clock again and prints the elapsed time in seconds with
eight fractional digits, e.g. 0.00312500sec.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			level.Set(cfg.logLevel)

			return runLoop(cmd, logger, clock, cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgFile, "config", "",
		"Config file (default $HOME/.looptime/config.yaml)")
	flags.StringP("output", "o", string(report.FormatText),
		"Output format: text, table, json, yaml")
	flags.Int("runs", 1,
		"Number of independent measurements to print")
	flags.Bool("host-info", false,
		"Include host details in table, json and yaml output")
	flags.String("metrics-file", "",
		"Write measurements as a Prometheus textfile to this path")
	flags.String("log-level", "warn",
		"Log level: debug, info, warn, error")

	for _, name := range []string{
		"output", "runs", "host-info", "metrics-file", "log-level",
	} {
		// Lookup cannot return nil for a flag registered above.
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the looptime version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "looptime", version)

			return err
		},
	}
}

type runConfig struct {
	output      report.Format
	runs        int
	hostInfo    bool
	metricsFile string
	logLevel    slog.Level
}

// loadConfig resolves flags, LOOPTIME_* environment variables and the
// optional config file into a runConfig.
func loadConfig(v *viper.Viper, cfgFile string) (runConfig, error) {
	v.SetEnvPrefix("looptime")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".looptime"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return runConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	output, err := report.ParseFormat(v.GetString("output"))
	if err != nil {
		return runConfig{}, err
	}

	runs := v.GetInt("runs")
	if runs < 1 {
		return runConfig{}, fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return runConfig{}, fmt.Errorf("parse log level: %w", err)
	}

	return runConfig{
		output:      output,
		runs:        runs,
		hostInfo:    v.GetBool("host-info"),
		metricsFile: v.GetString("metrics-file"),
		logLevel:    logLevel,
	}, nil
}

func runLoop(
	cmd *cobra.Command,
	logger *slog.Logger,
	clock stopwatch.Clock,
	cfg runConfig,
) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.DebugContext(ctx, "starting measurement",
		slog.Int("iterations", spin.Iterations),
		slog.Int("runs", cfg.runs),
		slog.String("output", string(cfg.output)),
	)

	// Step 1: Measure. Nothing else runs between the clock readings.
	measurements, err := measure(clock, cfg.runs, spin.Iterations)
	if err != nil {
		return err
	}

	for i, m := range measurements {
		logger.DebugContext(ctx, "run finished",
			slog.Int("run", i+1),
			slog.Duration("elapsed", m.Elapsed()),
		)
	}

	// Step 2: Describe the host, if asked and the format can carry it.
	var host *hostinfo.Info
	if cfg.hostInfo && cfg.output != report.FormatText {
		info := hostinfo.Detect(ctx, logger)
		host = &info
	}

	// Step 3: Print.
	if err := report.Render(cmd.OutOrStdout(), cfg.output, measurements, host); err != nil {
		return fmt.Errorf("render %s report: %w", cfg.output, err)
	}

	// Step 4: Export metrics.
	if cfg.metricsFile != "" {
		if err := metrics.WriteTextfile(cfg.metricsFile, measurements); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}

		logger.InfoContext(ctx, "metrics written",
			slog.String("path", cfg.metricsFile),
		)
	}

	return nil
}

// measure performs runs independent timings of spin.Run.
func measure(clock stopwatch.Clock, runs, iterations int) ([]stopwatch.Measurement, error) {
	measurements := make([]stopwatch.Measurement, 0, runs)

	for i := 0; i < runs; i++ {
		m, err := stopwatch.Measure(clock, iterations, spin.Run)
		if err != nil {
			return nil, fmt.Errorf("measure run %d: %w", i+1, err)
		}

		measurements = append(measurements, m)
	}

	return measurements, nil
}
