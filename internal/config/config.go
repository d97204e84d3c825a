package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the service configuration. Pointer fields distinguish "not
// set" from zero values, so partial config files are safe: anything
// omitted falls back to the Get* defaults.
type Config struct {
	Listen        *string `json:"listen,omitempty"`
	DataRoot      *string `json:"data_root,omitempty"`
	DBPath        *string `json:"db_path,omitempty"`
	MigrationsDir *string `json:"migrations_dir,omitempty"`

	DefaultColormap *string `json:"default_colormap,omitempty"`
	DefaultBins     *int    `json:"default_bins,omitempty"`
	Renderer        *string `json:"renderer,omitempty"` // "gonum" or "gnuplot"
	XYUnit          *string `json:"xy_unit,omitempty"`

	LivePollInterval *string `json:"live_poll_interval,omitempty"` // duration string like "500ms"
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and stay under the max file size. Omitted fields keep their
// defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that cannot be repaired by a
// fallback at the use site.
func (c *Config) Validate() error {
	if c.DefaultBins != nil {
		if *c.DefaultBins < 10 || *c.DefaultBins > 1000 {
			return fmt.Errorf("default_bins must be between 10 and 1000, got %d", *c.DefaultBins)
		}
	}

	if c.Renderer != nil {
		switch *c.Renderer {
		case "", "gonum", "gnuplot":
		default:
			return fmt.Errorf("renderer must be \"gonum\" or \"gnuplot\", got %q", *c.Renderer)
		}
	}

	if c.LivePollInterval != nil && *c.LivePollInterval != "" {
		d, err := time.ParseDuration(*c.LivePollInterval)
		if err != nil {
			return fmt.Errorf("invalid live_poll_interval '%s': %w", *c.LivePollInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("live_poll_interval must be positive, got %s", d)
		}
	}

	return nil
}

// GetListen returns the listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return "localhost:8080"
	}
	return *c.Listen
}

// GetDataRoot returns the dataset root directory or the default.
func (c *Config) GetDataRoot() string {
	if c.DataRoot == nil || *c.DataRoot == "" {
		return "data"
	}
	return *c.DataRoot
}

// GetDBPath returns the catalog database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "catalog.db"
	}
	return *c.DBPath
}

// GetMigrationsDir returns the migrations directory or the default.
func (c *Config) GetMigrationsDir() string {
	if c.MigrationsDir == nil || *c.MigrationsDir == "" {
		return "migrations"
	}
	return *c.MigrationsDir
}

// GetDefaultColormap returns the default_colormap value or the default.
func (c *Config) GetDefaultColormap() string {
	if c.DefaultColormap == nil || *c.DefaultColormap == "" {
		return "viridis"
	}
	return *c.DefaultColormap
}

// GetDefaultBins returns the default_bins value or the default.
func (c *Config) GetDefaultBins() int {
	if c.DefaultBins == nil {
		return 100
	}
	return *c.DefaultBins
}

// GetRenderer returns the renderer value or the default.
func (c *Config) GetRenderer() string {
	if c.Renderer == nil || *c.Renderer == "" {
		return "gonum"
	}
	return *c.Renderer
}

// GetXYUnit returns the xy_unit value; empty means native units.
func (c *Config) GetXYUnit() string {
	if c.XYUnit == nil {
		return ""
	}
	return *c.XYUnit
}

// GetLivePollInterval parses and returns the live_poll_interval.
func (c *Config) GetLivePollInterval() time.Duration {
	if c.LivePollInterval == nil || *c.LivePollInterval == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.LivePollInterval)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}
