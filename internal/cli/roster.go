package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veksa/loom/internal/logging"
)

func newRosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster <scope>",
		Short: "Show the collaborator roster for a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := newEngine()
			if err != nil {
				return err
			}
			defer closer()

			if err := replayLog(eng); err != nil {
				return err
			}

			members, stale := eng.CurrentRoster(args[0])
			logger := logging.WithScope(args[0])
			logger.Debug().Int("members", len(members)).Bool("stale", stale).Msg("roster resolved")
			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no roster for scope", args[0])
				return nil
			}
			for _, member := range members {
				global := ""
				if member.IsGlobal {
					global = " (global)"
				}
				model := member.Model
				if model == "" {
					model = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-24s model=%-12s tools=%s%s\n",
					member.DisplayName, member.Identity, model, strings.Join(member.Tools, ","), global)
			}
			if stale {
				fmt.Fprintln(cmd.OutOrStdout(), "roster is stale (treat members as offline)")
			}
			return nil
		},
	}
	return cmd
}
