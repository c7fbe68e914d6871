package cmd

import (
	"github.com/glimpse/glimpse/internal/daemon"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the capture daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dm := daemon.New(cfg.Daemon.PIDFile)

		running, pid, err := dm.IsRunning()
		if err != nil {
			return errors.Wrap(err, "failed to check daemon status")
		}
		if !running {
			printf(cmd, "Daemon is not running\n")
			return nil
		}

		printf(cmd, "Stopping daemon (PID: %d)...\n", pid)
		if err := dm.Stop(); err != nil {
			return errors.Wrap(err, "failed to stop daemon")
		}
		printf(cmd, "Daemon stopped successfully\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
