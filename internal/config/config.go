// Package config handles loading and managing recall configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the recall configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Retention RetentionConfig `toml:"retention"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	Host        string   `toml:"host"`         // bind address (default: 127.0.0.1)
	Port        int      `toml:"port"`         // HTTP server port (default: 8000)
	APIKey      string   `toml:"api_key"`      // optional API authentication key
	CORSOrigins []string `toml:"cors_origins"` // allowed CORS origins (empty disables CORS)
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir      string `toml:"data_dir"`
	DatabasePath string `toml:"database_path"` // overrides <data_dir>/recall.db
}

// RetentionConfig holds the optional retention sweeper configuration.
// When enabled, messages older than MaxAgeDays are permanently deleted on
// the cron Schedule.
type RetentionConfig struct {
	Enabled    bool   `toml:"enabled"`
	MaxAgeDays int    `toml:"max_age_days"`
	Schedule   string `toml:"schedule"` // cron expression (default: "0 3 * * *")
}

// DefaultHome returns the default recall home directory.
// Respects the RECALL_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("RECALL_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recall"
	}
	return filepath.Join(home, ".recall")
}

// Load reads the configuration from the specified file. If path is empty,
// the default location (<home>/config.toml) is used; if homeDir is empty,
// DefaultHome() decides. The config file is optional; defaults apply when
// it does not exist.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	}
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Data: DataConfig{
			DataDir: homeDir,
		},
		Retention: RetentionConfig{
			Schedule: "0 3 * * *",
		},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)
	cfg.Data.DatabasePath = expandPath(cfg.Data.DatabasePath)

	if cfg.Retention.Enabled && cfg.Retention.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("retention enabled but max_age_days is %d; set a positive value", cfg.Retention.MaxAgeDays)
	}

	return cfg, nil
}

// DatabasePath returns the SQLite database path, defaulting to
// <data_dir>/recall.db when not configured explicitly.
func (c *Config) DatabasePath() string {
	if c.Data.DatabasePath != "" {
		return c.Data.DatabasePath
	}
	return filepath.Join(c.Data.DataDir, "recall.db")
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0755)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
