// Package config handles Loom configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for Loom.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Engine settings
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
}

// GlobalConfig contains global Loom settings.
type GlobalConfig struct {
	// DataDir is where Loom stores its data (default: ~/.local/share/loom).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/loom).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains cursor database settings.
type DatabaseConfig struct {
	// Path is the SQLite cursor database file path.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// EngineConfig contains view-materialization settings.
type EngineConfig struct {
	// Viewer is the current viewer identity, used by the needs-response
	// filter and unread tracking.
	Viewer string `yaml:"viewer" mapstructure:"viewer"`

	// RecordLog is the JSONL record log the CLI replays.
	RecordLog string `yaml:"record_log" mapstructure:"record_log"`

	// InboxCursorKey is the cursor store key for the inbox view.
	InboxCursorKey string `yaml:"inbox_cursor_key" mapstructure:"inbox_cursor_key"`

	// RosterStaleAfter is how long a roster stays fresh without updates.
	RosterStaleAfter time.Duration `yaml:"roster_stale_after" mapstructure:"roster_stale_after"`

	// ActivityWindow is the default threshold for the activity filter.
	ActivityWindow time.Duration `yaml:"activity_window" mapstructure:"activity_window"`

	// NeedsResponseWindow is the default threshold for the needs-response
	// filter.
	NeedsResponseWindow time.Duration `yaml:"needs_response_window" mapstructure:"needs_response_window"`

	// PollInterval is how often the record log is polled for new lines.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "loom"),
			ConfigDir: filepath.Join(homeDir, ".config", "loom"),
		},
		Database: DatabaseConfig{
			Path: "", // Will be set to DataDir/loom.db
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Engine: EngineConfig{
			InboxCursorKey:      "inbox_last_visit",
			RosterStaleAfter:    5 * time.Minute,
			ActivityWindow:      time.Hour,
			NeedsResponseWindow: time.Hour,
			PollInterval:        500 * time.Millisecond,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.InboxCursorKey == "" {
		return fmt.Errorf("engine.inbox_cursor_key must not be empty")
	}
	if c.Engine.RosterStaleAfter <= 0 {
		return fmt.Errorf("engine.roster_stale_after must be positive")
	}
	if c.Engine.ActivityWindow <= 0 {
		return fmt.Errorf("engine.activity_window must be positive")
	}
	if c.Engine.NeedsResponseWindow <= 0 {
		return fmt.Errorf("engine.needs_response_window must be positive")
	}
	if c.Engine.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("engine.poll_interval must be at least 10ms")
	}
	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full cursor database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "loom.db")
}
