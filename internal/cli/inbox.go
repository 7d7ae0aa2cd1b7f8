package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInboxCmd() *cobra.Command {
	var (
		unreadOnly bool
		markRead   bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show the notification inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := newEngine()
			if err != nil {
				return err
			}
			defer closer()

			if err := replayLog(eng); err != nil {
				return err
			}

			items := eng.InboxItems()
			shown := 0
			for _, item := range items {
				if unreadOnly && !item.Unread {
					continue
				}
				marker := " "
				if item.Unread {
					marker = "*"
				}
				content := item.Record.Content
				if len(content) > 72 {
					content = content[:69] + "..."
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-9s %-16s %s  %s\n",
					marker, item.Category, formatTime(item.Record.CreatedAt), item.Record.Author, content)
				for _, suggestion := range item.Suggestions {
					fmt.Fprintf(cmd.OutOrStdout(), "    suggested: %s\n", strings.Join(suggestion, ", "))
				}
				shown++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d items, %d unread\n", shown, eng.UnreadCount())

			if markRead {
				if err := eng.MarkInboxRead(); err != nil {
					return fmt.Errorf("failed to mark inbox read: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread items")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "Advance the read cursor after listing")
	return cmd
}
