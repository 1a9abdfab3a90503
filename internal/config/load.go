package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("invalid config")

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the scene cannot be built from.
func (c *Config) Validate() error {
	cam := c.Scene.Camera
	switch {
	case cam.FOV <= 0 || cam.FOV >= 180:
		return fmt.Errorf("%w: camera fov %v out of (0,180)", ErrInvalid, cam.FOV)
	case cam.Near <= 0 || cam.Far <= cam.Near:
		return fmt.Errorf("%w: camera clip planes near=%v far=%v", ErrInvalid, cam.Near, cam.Far)
	case c.Scene.Controls.DampingFactor < 0 || c.Scene.Controls.DampingFactor > 1:
		return fmt.Errorf("%w: damping factor %v out of [0,1]", ErrInvalid, c.Scene.Controls.DampingFactor)
	case c.Model.URL == "":
		return fmt.Errorf("%w: model url is empty", ErrInvalid)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Showcase")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Showcase")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "showcase")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "showcase")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
