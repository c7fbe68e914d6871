package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/glimpse/glimpse/internal/config"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath         string
	primaryMonitorOnly bool
	interval           time.Duration
	threshold          float64
	verbose            bool
)

var rootCmd = &cobra.Command{
	Use:   "glimpse",
	Short: "Screen change recorder",
	Long: `glimpse watches every monitor, detects when visible content has
meaningfully changed and records each change as a screenshot, its OCR text,
a text embedding and the focused application.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default: $GLIMPSE_CONFIG or ~/.config/glimpse/config.yaml)")
	flags.BoolVar(&primaryMonitorOnly, "primary-monitor-only", false, "Capture only the primary monitor")
	flags.DurationVar(&interval, "interval", 0, "Pause between captures (default 3s)")
	flags.Float64Var(&threshold, "threshold", 0, "SSIM score below which a frame counts as changed (default 0.9)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log every frame comparison")
}

// loadConfig layers defaults, file, environment and command line flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.New(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("primary-monitor-only") {
		cfg.Capture.PrimaryMonitorOnly = primaryMonitorOnly
	}
	if flags.Changed("interval") {
		if err := cfg.SetInterval(interval); err != nil {
			return nil, err
		}
	}
	if flags.Changed("threshold") {
		if err := cfg.SetThreshold(threshold); err != nil {
			return nil, err
		}
	}

	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// newLogger writes JSON lines to the log file in the background daemon and
// text to stderr otherwise
func newLogger(cfg *config.Config, detached bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if !detached {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open log file %s", cfg.Daemon.LogFile)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), f, nil
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
