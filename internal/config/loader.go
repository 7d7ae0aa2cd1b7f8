package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Set up Viper
	l.setupViper(cfg)

	// Load config file
	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in paths
	expandPaths(cfg)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all path-related config fields.
func expandPaths(cfg *Config) {
	cfg.Global.DataDir = expandTilde(cfg.Global.DataDir)
	cfg.Global.ConfigDir = expandTilde(cfg.Global.ConfigDir)
	cfg.Database.Path = expandTilde(cfg.Database.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
	cfg.Engine.RecordLog = expandTilde(cfg.Engine.RecordLog)
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "loom"))
	}

	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "loom"))
	}

	// Current directory
	v.AddConfigPath(".")

	// Environment variables - LOOM_ prefix
	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults from config struct
	l.setDefaults(cfg)

	// Explicitly bind environment variables (Viper's Unmarshal has issues without this)
	bindEnvVars(v)

	// AutomaticEnv for any keys not explicitly bound
	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	// Global
	v.SetDefault("global.data_dir", cfg.Global.DataDir)
	v.SetDefault("global.config_dir", cfg.Global.ConfigDir)

	// Database
	v.SetDefault("database.path", cfg.Database.Path)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	// Engine
	v.SetDefault("engine.viewer", cfg.Engine.Viewer)
	v.SetDefault("engine.record_log", cfg.Engine.RecordLog)
	v.SetDefault("engine.inbox_cursor_key", cfg.Engine.InboxCursorKey)
	v.SetDefault("engine.roster_stale_after", cfg.Engine.RosterStaleAfter)
	v.SetDefault("engine.activity_window", cfg.Engine.ActivityWindow)
	v.SetDefault("engine.needs_response_window", cfg.Engine.NeedsResponseWindow)
	v.SetDefault("engine.poll_interval", cfg.Engine.PollInterval)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return nil
		}
		return err
	}

	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// bindEnvVars binds environment variables for config keys.
// Viper's Unmarshal has issues with env vars on nested structs unless explicitly bound.
func bindEnvVars(v *viper.Viper) {
	envBindings := []string{
		// Global
		"global.data_dir",
		"global.config_dir",
		// Database
		"database.path",
		// Logging
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.enable_caller",
		// Engine
		"engine.viewer",
		"engine.record_log",
		"engine.inbox_cursor_key",
		"engine.roster_stale_after",
		"engine.activity_window",
		"engine.needs_response_window",
		"engine.poll_interval",
	}

	for _, key := range envBindings {
		// Convert key to env var format: database.path -> LOOM_DATABASE_PATH
		envSuffix := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, "LOOM_"+envSuffix)
	}
}
