package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Slot policies for monitors that disappear between ticks
const (
	SlotPolicyRetain = "retain"
	SlotPolicyPrune  = "prune"
)

const appName = "glimpse"

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Capture   CaptureConfig   `yaml:"capture"`
	Activity  ActivityConfig  `yaml:"activity"`
	OCR       OCRConfig       `yaml:"ocr"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Web       WebConfig       `yaml:"web"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // Empty means <data dir>/glimpse.db
}

// CaptureConfig holds capture loop configuration.
// Threshold is the SSIM score below which a frame counts as changed.
// Backend is one of auto, screenshot or wayland; SlotPolicy is retain or
// prune. An empty ArtifactDir means <data dir>/screenshots.
type CaptureConfig struct {
	Interval           time.Duration `yaml:"interval"`
	MinInterval        time.Duration `yaml:"-"`
	MaxInterval        time.Duration `yaml:"-"`
	Threshold          float64       `yaml:"threshold"`
	PrimaryMonitorOnly bool          `yaml:"primary_monitor_only"`
	PrimaryMonitor     int           `yaml:"primary_monitor"`
	Backend            string        `yaml:"backend"`
	SlotPolicy         string        `yaml:"slot_policy"`
	ArtifactDir        string        `yaml:"artifact_dir"`
}

// ActivityConfig controls when the user counts as away
type ActivityConfig struct {
	IdleThreshold time.Duration `yaml:"idle_threshold"`
}

// OCRConfig configures the tesseract text extractor
type OCRConfig struct {
	Command  string `yaml:"command"`
	Language string `yaml:"language"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding backend.
// With no endpoint and no API key, zero vectors are stored.
type EmbeddingConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"`
	LogFile string `yaml:"log_file"`
}

// WebConfig holds status server configuration
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Interval:    3 * time.Second,
			MinInterval: time.Second,
			MaxInterval: 300 * time.Second,
			Threshold:   0.9,
			Backend:     "auto",
			SlotPolicy:  SlotPolicyRetain,
		},
		Activity: ActivityConfig{
			IdleThreshold: 5 * time.Minute,
		},
		OCR: OCRConfig{
			Command:  "tesseract",
			Language: "eng",
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 384,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/%s-%d.pid", appName, os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/%s-%d.log", appName, os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000,
		},
	}
}

// DataDir returns $XDG_DATA_HOME/glimpse or ~/.local/share/glimpse
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// ResolvePaths fills empty storage paths with their defaults under DataDir
func (c *Config) ResolvePaths() error {
	if c.Database.Path != "" && c.Capture.ArtifactDir != "" {
		return nil
	}
	dir, err := DataDir()
	if err != nil {
		return err
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dir, appName+".db")
	}
	if c.Capture.ArtifactDir == "" {
		c.Capture.ArtifactDir = filepath.Join(dir, "screenshots")
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Capture.Interval < c.Capture.MinInterval {
		return fmt.Errorf("capture interval (%v) cannot be less than minimum (%v)",
			c.Capture.Interval, c.Capture.MinInterval)
	}

	if c.Capture.Interval > c.Capture.MaxInterval {
		return fmt.Errorf("capture interval (%v) cannot be greater than maximum (%v)",
			c.Capture.Interval, c.Capture.MaxInterval)
	}

	if c.Capture.Threshold <= 0 || c.Capture.Threshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", c.Capture.Threshold)
	}

	if c.Capture.PrimaryMonitor < 0 {
		return fmt.Errorf("primary monitor index cannot be negative")
	}

	switch c.Capture.Backend {
	case "auto", "screenshot", "wayland":
	default:
		return fmt.Errorf("unknown capture backend %q (valid: auto, screenshot, wayland)", c.Capture.Backend)
	}

	switch c.Capture.SlotPolicy {
	case SlotPolicyRetain, SlotPolicyPrune:
	default:
		return fmt.Errorf("unknown slot policy %q (valid: retain, prune)", c.Capture.SlotPolicy)
	}

	if c.Activity.IdleThreshold < 0 {
		return fmt.Errorf("idle threshold cannot be negative")
	}

	if c.OCR.Command == "" {
		return fmt.Errorf("OCR command cannot be empty")
	}

	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding dimension cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetInterval sets the capture interval with validation
func (c *Config) SetInterval(interval time.Duration) error {
	if interval < c.Capture.MinInterval {
		return fmt.Errorf("capture interval cannot be less than %v", c.Capture.MinInterval)
	}
	if interval > c.Capture.MaxInterval {
		return fmt.Errorf("capture interval cannot be greater than %v", c.Capture.MaxInterval)
	}
	c.Capture.Interval = interval
	return nil
}

// SetThreshold sets the similarity threshold with validation
func (c *Config) SetThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", threshold)
	}
	c.Capture.Threshold = threshold
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	embedding := "disabled (zero vectors)"
	if c.Embedding.Endpoint != "" || c.Embedding.APIKey != "" {
		embedding = fmt.Sprintf("%s @ %s", c.Embedding.Model, c.Embedding.Endpoint)
	}

	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Capture:
    Interval: %v
    Threshold: %v
    Primary Monitor Only: %v (index %d)
    Backend: %s
    Slot Policy: %s
    Artifact Dir: %s
  Activity:
    Idle Threshold: %v
  OCR:
    Command: %s (%s)
  Embedding: %s
  Daemon:
    PID File: %s
    Log File: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Capture.Interval,
		c.Capture.Threshold,
		c.Capture.PrimaryMonitorOnly,
		c.Capture.PrimaryMonitor,
		c.Capture.Backend,
		c.Capture.SlotPolicy,
		c.Capture.ArtifactDir,
		c.Activity.IdleThreshold,
		c.OCR.Command,
		c.OCR.Language,
		embedding,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Web.Host,
		c.Web.Port,
	)
}
