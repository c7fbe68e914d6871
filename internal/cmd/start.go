package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/glimpse/glimpse/internal/config"
	"github.com/glimpse/glimpse/internal/daemon"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var runWeb bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the capture daemon in the background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startDaemon(cmd, false)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capture daemon with the status API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startDaemon(cmd, true)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the capture loop in the foreground",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runDaemon(cfg, daemon.New(cfg.Daemon.PIDFile), runWeb, false)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runWeb, "web", false, "Also serve the status API")
	rootCmd.AddCommand(startCmd, serveCmd, runCmd)
}

func startDaemon(cmd *cobra.Command, withWeb bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	if daemon.IsChild() {
		return runDaemon(cfg, dm, withWeb, true)
	}

	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	pid, err = daemon.Daemonize(os.Args)
	if err != nil {
		return err
	}

	printf(cmd, "Daemon started successfully (PID: %d)\n", pid)
	if withWeb {
		printf(cmd, "Status API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	printf(cmd, "Logs: %s\n", cfg.Daemon.LogFile)
	return nil
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon, withWeb, detached bool) error {
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running && pid != os.Getpid() {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	logger, closer, err := newLogger(cfg, detached)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, err := newRuntime(cfg, logger, withWeb)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer rt.Close()

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting glimpse", "config", cfg.String())
	if err := rt.run(ctx); err != nil {
		logger.Error("capture loop failed", "error", err)
		return err
	}

	logger.Info("daemon stopped successfully")
	return nil
}
