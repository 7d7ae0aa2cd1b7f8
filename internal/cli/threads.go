package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veksa/loom/internal/relevance"
)

func newThreadsCmd() *cobra.Command {
	var (
		collection    string
		activeWindow  time.Duration
		needsResponse bool
	)

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Show merged conversation threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := newEngine()
			if err != nil {
				return err
			}
			defer closer()

			if err := replayLog(eng); err != nil {
				return err
			}

			threads := eng.CurrentThreads(collection)
			switch {
			case needsResponse:
				threads = eng.FilteredThreads(collection, relevance.Filter{
					Mode:      relevance.ModeNeedsResponse,
					Threshold: cfg.Engine.NeedsResponseWindow,
				})
			case activeWindow > 0:
				threads = eng.FilteredThreads(collection, relevance.Filter{
					Mode:      relevance.ModeActivity,
					Threshold: activeWindow,
				})
			}

			for _, thread := range threads {
				phase := thread.Phase
				if phase == "" {
					phase = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %3d replies  %-10s %s\n",
					formatTime(thread.CreatedAt), thread.ReplyCount, phase, thread.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d threads\n", len(threads))
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Filter by parent collection id")
	cmd.Flags().DurationVar(&activeWindow, "active", 0, "Only show threads with activity inside this window")
	cmd.Flags().BoolVar(&needsResponse, "needs-response", false, "Only show threads awaiting the viewer's response")
	return cmd
}
