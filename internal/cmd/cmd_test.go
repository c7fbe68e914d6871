package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glimpse/glimpse/internal/database"
	"github.com/glimpse/glimpse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every path glimpse touches into a temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GLIMPSE_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("GLIMPSE_DB_PATH", filepath.Join(dir, "glimpse.db"))
	t.Setenv("GLIMPSE_ARTIFACT_DIR", filepath.Join(dir, "shots"))
	t.Setenv("GLIMPSE_PID_FILE", filepath.Join(dir, "glimpse.pid"))
	t.Setenv("GLIMPSE_LOG_FILE", filepath.Join(dir, "glimpse.log"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, dir string, apps ...string) {
	t.Helper()
	db, err := database.Connect(filepath.Join(dir, "glimpse.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Initialize())

	repo := database.NewRepository(db)
	now := time.Now()
	for _, app := range apps {
		require.NoError(t, repo.InsertEntry(context.Background(), &models.Entry{
			SessionID:    "test",
			Timestamp:    now.Unix(),
			CapturedAt:   now,
			ArtifactPath: "x.png",
			AppName:      app,
		}))
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "glimpse version dev")
}

func TestReportCommand(t *testing.T) {
	dir := isolate(t)
	seed(t, dir, "code", "code", "slack")

	out, err := execute(t, "report", "day", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Captures: 3")
	assert.Contains(t, out, "code")

	out, err = execute(t, "report", "week", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_captures": 3`)

	_, err = execute(t, "report", "year", "--json=false")
	assert.Error(t, err)
}

func TestClearCommand(t *testing.T) {
	dir := isolate(t)
	seed(t, dir, "code")
	shots := filepath.Join(dir, "shots")
	require.NoError(t, os.MkdirAll(shots, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(shots, "1.png"), []byte("x"), 0644))

	out, err := execute(t, "clear", "--yes=false", "--artifacts=false", "--before=0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Operation cancelled")

	out, err = execute(t, "clear", "--yes", "--artifacts", "--before=0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Database cleared successfully")
	assert.Contains(t, out, "Removed 1 screenshots")

	db, err := database.Connect(filepath.Join(dir, "glimpse.db"))
	require.NoError(t, err)
	defer db.Close()
	n, err := database.NewRepository(db).Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClearBefore(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "glimpse.db")
	db, err := database.Connect(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	repo := database.NewRepository(db)
	now := time.Now()
	for _, at := range []time.Time{now.Add(-72 * time.Hour), now} {
		require.NoError(t, repo.InsertEntry(context.Background(), &models.Entry{
			SessionID: "test", Timestamp: at.Unix(), CapturedAt: at, AppName: "code",
		}))
	}
	require.NoError(t, db.Close())

	shots := filepath.Join(dir, "shots")
	require.NoError(t, os.MkdirAll(shots, 0755))
	oldShot := filepath.Join(shots, "old.png")
	newShot := filepath.Join(shots, "new.png")
	require.NoError(t, os.WriteFile(oldShot, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(newShot, []byte("x"), 0644))
	old := now.Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(oldShot, old, old))

	out, err := execute(t, "clear", "--yes", "--artifacts", "--before=24h")
	t.Cleanup(func() { clearBefore = 0 })
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 captures older than 24h0m0s")
	assert.Contains(t, out, "Removed 1 screenshots")
	assert.NoFileExists(t, oldShot)
	assert.FileExists(t, newShot)

	db, err = database.Connect(dbPath)
	require.NoError(t, err)
	defer db.Close()
	n, err := database.NewRepository(db).Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = execute(t, "clear", "--yes", "--before=-1h")
	assert.Error(t, err)
}

func TestStopWhenNotRunning(t *testing.T) {
	isolate(t)
	out, err := execute(t, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon is not running")
}

func TestLoadConfigFlags(t *testing.T) {
	isolate(t)
	t.Cleanup(func() {
		flags := rootCmd.PersistentFlags()
		for name, value := range map[string]string{
			"interval":             "0s",
			"threshold":            "0",
			"primary-monitor-only": "false",
		} {
			_ = flags.Set(name, value)
			flags.Lookup(name).Changed = false
		}
	})

	require.NoError(t, rootCmd.ParseFlags([]string{
		"--interval=7s", "--threshold=0.8", "--primary-monitor-only",
	}))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Capture.Interval)
	assert.Equal(t, 0.8, cfg.Capture.Threshold)
	assert.True(t, cfg.Capture.PrimaryMonitorOnly)

	require.NoError(t, rootCmd.ParseFlags([]string{"--interval=100ms"}))
	_, err = loadConfig(rootCmd)
	assert.Error(t, err)
}
