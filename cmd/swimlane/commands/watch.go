package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/swimlane/internal/printer"
	"github.com/dyluth/swimlane/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var boardArg, output string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live changes of a board",
		Long: `Follow a board and print every change to its columns and tasks as
it is reconciled. Bursts of changes to one column are coalesced.

Output Formats:
  default - One human-readable line per change
  json    - One JSON object per change

Examples:
  swimlane watch --board 3f2a9c
  swimlane watch --board 3f2a9c --output json | jq .column_title`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := watch.ParseFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json"})
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			boardID, err := env.resolveBoard(ctx, boardArg)
			if err != nil {
				return err
			}
			s, err := env.openSession(ctx, boardID)
			if err != nil {
				return storeError("watch board", err)
			}
			defer s.Close()

			listener := s.Reconciler().Listen()
			defer listener.Close()

			return watch.StreamBoard(ctx, s.Reconciler().Snapshot(), listener.Updates(), format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&boardArg, "board", "b", "", "Board ID (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or json")
	cmd.MarkFlagRequired("board")
	return cmd
}
