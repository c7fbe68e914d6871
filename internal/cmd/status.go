package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/glimpse/glimpse/internal/capture"
	"github.com/glimpse/glimpse/internal/config"
	"github.com/glimpse/glimpse/internal/daemon"
	"github.com/glimpse/glimpse/internal/database"
	"github.com/glimpse/glimpse/pkg/detector"
	"github.com/glimpse/glimpse/pkg/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status, stored captures and the focused window",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}

	if !running {
		printf(cmd, "Status: Not running\n")
	} else {
		printf(cmd, "Status: Running (PID: %d)\n", pid)
		if stats, err := fetchLoopStats(cfg); err == nil {
			printf(cmd, "  Ticks: %d (idle %d)\n", stats.Ticks, stats.IdleTicks)
			printf(cmd, "  Monitors: %v\n", stats.Monitors)
			printf(cmd, "  Changes: %d, persisted %d\n", stats.Changes, stats.Persisted)
			printf(cmd, "  Errors: capture %d, persistence %d\n", stats.CaptureErrors, stats.CollaboratorErrors)
		}
	}
	printf(cmd, "Interval: %v, threshold: %v\n", cfg.Capture.Interval, cfg.Capture.Threshold)
	printf(cmd, "Database: %s\n", cfg.Database.Path)
	printf(cmd, "Screenshots: %s\n", cfg.Capture.ArtifactDir)

	printStoredCaptures(cmd, cfg)

	det, err := detector.New(cfg.Activity.IdleThreshold, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		printf(cmd, "\nCould not detect current window: %v\n", err)
		return nil
	}
	defer det.Close()

	if info, err := det.GetFocusedWindow(); err == nil && info != nil {
		printf(cmd, "\nCurrent Window:\n")
		printf(cmd, "  App: %s\n", info.AppName)
		printf(cmd, "  Title: %s\n", info.WindowTitle)
		printf(cmd, "  Display: %s\n", info.DisplayServer)
	}

	if idle, err := det.GetIdleInfo(); err == nil && idle != nil {
		printf(cmd, "\nSystem State:\n")
		printf(cmd, "  Idle: %v\n", idle.IsIdle)
		printf(cmd, "  Locked: %v\n", idle.IsLocked)
		if idle.IdleTime > 0 {
			printf(cmd, "  Idle Time: %s\n", utils.FormatRoundedUnit(time.Duration(idle.IdleTime)*time.Second))
		}
	}
	return nil
}

func printStoredCaptures(cmd *cobra.Command, cfg *config.Config) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		return
	}
	repo := database.NewRepository(db)

	count, err := repo.Count()
	if err != nil {
		return
	}
	printf(cmd, "Stored captures: %d\n", count)

	latest, err := repo.GetLatest()
	if err != nil || latest == nil {
		return
	}
	ago := utils.FormatRoundedUnit(time.Since(time.Unix(latest.Timestamp, 0)))
	printf(cmd, "Last capture: %s ago on monitor %d (%s)\n", ago, latest.MonitorIndex, latest.AppName)
}

// fetchLoopStats asks a running `glimpse serve` for its live counters
func fetchLoopStats(cfg *config.Config) (*capture.Stats, error) {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s:%d/api/status", cfg.Web.Host, cfg.Web.Port))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("status API returned %s", resp.Status)
	}

	var body struct {
		Loop *capture.Stats `json:"loop"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode status")
	}
	if body.Loop == nil {
		return nil, errors.New("status API has no loop stats")
	}
	return body.Loop, nil
}
