// Package cli implements the loom command line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veksa/loom/internal/config"
	"github.com/veksa/loom/internal/cursor"
	"github.com/veksa/loom/internal/engine"
	"github.com/veksa/loom/internal/feed"
	"github.com/veksa/loom/internal/logging"
)

var (
	cfg        *config.Config
	flagConfig string
	flagLog    string
	flagViewer string
	flagRecord string
)

// Execute runs the loom CLI.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loom",
		Short:         "Materialize query-ready views from a record stream",
		Long:          "loom reconciles an unordered, duplicate-prone record stream into thread, roster, and inbox views.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			if flagConfig != "" {
				loader.SetConfigFile(flagConfig)
			}
			loaded, err := loader.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			if flagLog != "" {
				cfg.Logging.Level = flagLog
			}
			if flagViewer != "" {
				cfg.Engine.Viewer = flagViewer
			}
			if flagRecord != "" {
				cfg.Engine.RecordLog = flagRecord
			}

			logging.Init(logging.Config{
				Level:        cfg.Logging.Level,
				Format:       cfg.Logging.Format,
				EnableCaller: cfg.Logging.EnableCaller,
			})

			if used := loader.ConfigFileUsed(); used != "" {
				logging.Debug().Str("config_file", used).Msg("loaded config file")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default is $HOME/.config/loom/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagLog, "log-level", "", "override logging level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagViewer, "viewer", "", "viewer identity")
	cmd.PersistentFlags().StringVar(&flagRecord, "record-log", "", "JSONL record log to replay")

	cmd.AddCommand(
		newInboxCmd(),
		newThreadsCmd(),
		newRosterCmd(),
		newWatchCmd(),
	)

	return cmd
}

// newEngine builds an engine from the loaded config, backed by the SQLite
// cursor store. The caller owns the returned closer.
func newEngine() (*engine.Engine, func(), error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	store, err := cursor.OpenSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(store, engine.Options{
		Viewer:         cfg.Engine.Viewer,
		InboxCursorKey: cfg.Engine.InboxCursorKey,
		StaleAfter:     cfg.Engine.RosterStaleAfter,
	})
	closer := func() { _ = store.Close() }
	return eng, closer, nil
}

// replayLog loads the configured record log into the engine.
func replayLog(eng *engine.Engine) error {
	if cfg.Engine.RecordLog == "" {
		return fmt.Errorf("no record log configured (set engine.record_log or --record-log)")
	}
	records, err := feed.LoadLog(cfg.Engine.RecordLog)
	if err != nil {
		return err
	}
	start := time.Now()
	eng.IngestBatch(records)
	logging.Debug().
		Int("records", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("record log replayed")
	return nil
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
