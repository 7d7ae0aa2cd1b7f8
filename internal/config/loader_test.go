package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "console", cfg.Logging.Format)
	require.Equal(t, "inbox_last_visit", cfg.Engine.InboxCursorKey)
	require.Equal(t, 5*time.Minute, cfg.Engine.RosterStaleAfter)
	require.Equal(t, time.Hour, cfg.Engine.ActivityWindow)
	require.Equal(t, time.Hour, cfg.Engine.NeedsResponseWindow)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty cursor key", func(c *Config) { c.Engine.InboxCursorKey = "" }},
		{"zero stale after", func(c *Config) { c.Engine.RosterStaleAfter = 0 }},
		{"negative activity window", func(c *Config) { c.Engine.ActivityWindow = -time.Minute }},
		{"zero needs-response window", func(c *Config) { c.Engine.NeedsResponseWindow = 0 }},
		{"poll interval too small", func(c *Config) { c.Engine.PollInterval = time.Millisecond }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
global:
  data_dir: ` + dir + `
logging:
  level: debug
engine:
  viewer: alice
  record_log: ` + filepath.Join(dir, "records.jsonl") + `
  roster_stale_after: 10m
  activity_window: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	require.Equal(t, dir, cfg.Global.DataDir)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "alice", cfg.Engine.Viewer)
	require.Equal(t, 10*time.Minute, cfg.Engine.RosterStaleAfter)
	require.Equal(t, 2*time.Hour, cfg.Engine.ActivityWindow)
	// Unset keys keep their defaults.
	require.Equal(t, time.Hour, cfg.Engine.NeedsResponseWindow)
	require.Equal(t, "inbox_last_visit", cfg.Engine.InboxCursorKey)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LOOM_ENGINE_VIEWER", "bob")
	t.Setenv("LOOM_LOGGING_LEVEL", "warn")

	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.Equal(t, "bob", cfg.Engine.Viewer)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Global.DataDir = "/data/loom"
	require.Equal(t, filepath.Join("/data/loom", "loom.db"), cfg.DatabasePath())

	cfg.Database.Path = "/elsewhere/cursors.db"
	require.Equal(t, "/elsewhere/cursors.db", cfg.DatabasePath())
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, home, expandTilde("~"))
	require.Equal(t, filepath.Join(home, "x"), expandTilde("~/x"))
	require.Equal(t, "/abs/path", expandTilde("/abs/path"))
	require.Equal(t, "", expandTilde(""))
}
