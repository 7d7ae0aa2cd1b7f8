package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veksa/loom/internal/feed"
	"github.com/veksa/loom/internal/logging"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail the record log and print inbox changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Engine.RecordLog == "" {
				return fmt.Errorf("no record log configured (set engine.record_log or --record-log)")
			}

			eng, closer, err := newEngine()
			if err != nil {
				return err
			}
			defer closer()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			changes, cancelChanges := eng.Subscribe()
			defer cancelChanges()

			logFeed := feed.NewLogFeed(cfg.Engine.RecordLog, cfg.Engine.PollInterval)
			runErr := make(chan error, 1)
			go func() {
				runErr <- eng.Run(ctx, logFeed)
			}()

			logger := logging.Component("watch")
			logger.Info().Str("record_log", cfg.Engine.RecordLog).Msg("watching record log")

			lastUnread := -1
			for {
				select {
				case <-changes:
					unread := eng.UnreadCount()
					if unread == lastUnread {
						continue
					}
					lastUnread = unread
					items := eng.InboxItems()
					if len(items) > 0 {
						top := items[0]
						fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s from %s: %s (%d unread)\n",
							formatTime(top.Record.CreatedAt), top.Category, top.Record.Author, top.Record.Content, unread)
					}
				case err := <-runErr:
					if err != nil && ctx.Err() == nil {
						return err
					}
					return nil
				case <-ctx.Done():
					<-runErr
					return nil
				}
			}
		},
	}
	return cmd
}
