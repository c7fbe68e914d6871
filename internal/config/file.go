package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFilePath returns $GLIMPSE_CONFIG, or ~/.config/glimpse/config.yaml
func DefaultFilePath() string {
	if path := os.Getenv("GLIMPSE_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// LoadFile overlays the YAML file at path onto cfg. An empty path means the
// default location, which may be absent; an explicit path must exist.
func LoadFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}
