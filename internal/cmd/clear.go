package cmd

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glimpse/glimpse/internal/database"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	clearYes       bool
	clearArtifacts bool
	clearBefore    time.Duration
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete stored captures and error logs",
	Long: `Delete stored captures and error logs.

With --before, only captures older than the given age are deleted and error
logs are kept.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if clearBefore < 0 {
			return errors.New("--before must be positive")
		}

		if !clearYes {
			if clearBefore > 0 {
				printf(cmd, "This will delete captures older than %s. Are you sure? (yes/no): ", clearBefore)
			} else {
				printf(cmd, "This will delete all capture data. Are you sure? (yes/no): ")
			}
			response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "yes" && response != "y" {
				printf(cmd, "Operation cancelled\n")
				return nil
			}
		}

		db, err := database.Connect(cfg.Database.Path)
		if err != nil {
			return errors.Wrap(err, "failed to connect to database")
		}
		defer db.Close()
		if err := db.Initialize(); err != nil {
			return err
		}

		repo := database.NewRepository(db)
		var cutoff time.Time
		if clearBefore > 0 {
			cutoff = time.Now().Add(-clearBefore)
			n, err := repo.DeleteOldEntries(cutoff)
			if err != nil {
				return err
			}
			printf(cmd, "Deleted %d captures older than %s\n", n, clearBefore)
		} else {
			if err := repo.Clear(); err != nil {
				return err
			}
			printf(cmd, "Database cleared successfully\n")
		}

		if clearArtifacts {
			n, err := removeArtifacts(cfg.Capture.ArtifactDir, cutoff)
			if err != nil {
				return err
			}
			printf(cmd, "Removed %d screenshots from %s\n", n, cfg.Capture.ArtifactDir)
		}
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	clearCmd.Flags().BoolVar(&clearArtifacts, "artifacts", false, "Also delete the screenshot files")
	clearCmd.Flags().DurationVar(&clearBefore, "before", 0, "Only delete captures older than this age (e.g. 720h)")
	rootCmd.AddCommand(clearCmd)
}

// removeArtifacts deletes screenshots in dir. A non-zero cutoff keeps files
// modified at or after it.
func removeArtifacts(dir string, cutoff time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return 0, errors.Wrap(err, "failed to list screenshots")
	}
	removed := 0
	for _, path := range matches {
		if !cutoff.IsZero() {
			info, err := os.Stat(path)
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "failed to remove %s", path)
		}
		removed++
	}
	return removed, nil
}
