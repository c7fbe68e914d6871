package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables.
// Environment variables override file and default values; malformed values
// are ignored.
func LoadFromEnv(cfg *Config) {
	if dbPath := os.Getenv("GLIMPSE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Capture configuration
	if interval, ok := envDuration("GLIMPSE_INTERVAL"); ok {
		if interval >= cfg.Capture.MinInterval && interval <= cfg.Capture.MaxInterval {
			cfg.Capture.Interval = interval
		}
	}

	if threshold := os.Getenv("GLIMPSE_THRESHOLD"); threshold != "" {
		if val, err := strconv.ParseFloat(threshold, 64); err == nil && val > 0 && val <= 1 {
			cfg.Capture.Threshold = val
		}
	}

	if primaryOnly := os.Getenv("GLIMPSE_PRIMARY_MONITOR_ONLY"); primaryOnly != "" {
		if val, err := strconv.ParseBool(primaryOnly); err == nil {
			cfg.Capture.PrimaryMonitorOnly = val
		}
	}

	if primary := os.Getenv("GLIMPSE_PRIMARY_MONITOR"); primary != "" {
		if idx, err := strconv.Atoi(primary); err == nil && idx >= 0 {
			cfg.Capture.PrimaryMonitor = idx
		}
	}

	if backend := os.Getenv("GLIMPSE_BACKEND"); backend != "" {
		cfg.Capture.Backend = backend
	}

	if policy := os.Getenv("GLIMPSE_SLOT_POLICY"); policy != "" {
		cfg.Capture.SlotPolicy = policy
	}

	if dir := os.Getenv("GLIMPSE_ARTIFACT_DIR"); dir != "" {
		cfg.Capture.ArtifactDir = dir
	}

	if idle, ok := envDuration("GLIMPSE_IDLE_THRESHOLD"); ok {
		cfg.Activity.IdleThreshold = idle
	}

	// OCR configuration
	if cmd := os.Getenv("GLIMPSE_OCR_COMMAND"); cmd != "" {
		cfg.OCR.Command = cmd
	}

	if lang := os.Getenv("GLIMPSE_OCR_LANG"); lang != "" {
		cfg.OCR.Language = lang
	}

	// Embedding configuration
	if endpoint := os.Getenv("GLIMPSE_EMBEDDING_ENDPOINT"); endpoint != "" {
		cfg.Embedding.Endpoint = endpoint
	}

	if key := os.Getenv("GLIMPSE_EMBEDDING_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}

	if model := os.Getenv("GLIMPSE_EMBEDDING_MODEL"); model != "" {
		cfg.Embedding.Model = model
	}

	if dim := os.Getenv("GLIMPSE_EMBEDDING_DIM"); dim != "" {
		if val, err := strconv.Atoi(dim); err == nil && val >= 0 {
			cfg.Embedding.Dimension = val
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("GLIMPSE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("GLIMPSE_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Web configuration
	if webHost := os.Getenv("GLIMPSE_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("GLIMPSE_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// envDuration accepts plain seconds ("3") or a Go duration ("1500ms")
func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}

// New creates a Config from defaults, the config file at path (or the
// default location when path is empty) and the environment
func New(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
