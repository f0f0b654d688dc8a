package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dyluth/swimlane/internal/printer"
	"github.com/dyluth/swimlane/internal/reconcile"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newBoardCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Create, list, show and delete boards",
	}
	cmd.AddCommand(
		newBoardCreateCmd(opts),
		newBoardListCmd(opts),
		newBoardShowCmd(opts),
		newBoardDeleteCmd(opts),
	)
	return cmd
}

func newBoardCreateCmd(opts *globalOptions) *cobra.Command {
	var name, team, createdBy string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a board with the default columns",
		Long: `Create a board owned by a team. The board starts with three columns:
To Do, In Progress and Done.

Examples:
  swimlane board create --name "Sprint 12" --team platform --by alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			b := &board.Board{ID: uuid.NewString(), Name: name, TeamID: team, CreatedBy: createdBy}
			columns, err := env.client.CreateBoard(ctx, b, uuid.NewString)
			if err != nil {
				return storeError("create board", err)
			}

			printer.Success("Created board '%s' (%s)\n", b.Name, printer.ShortID(b.ID))
			for _, col := range columns {
				printer.Info("  %s  %s\n", printer.ShortID(col.ID), col.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Board name (required)")
	cmd.Flags().StringVar(&team, "team", "", "Owning team (required)")
	cmd.Flags().StringVar(&createdBy, "by", currentUser(), "Creating user")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("team")
	return cmd
}

func newBoardListCmd(opts *globalOptions) *cobra.Command {
	var team string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the boards of a team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			boards, err := env.client.ListTeamBoards(ctx, team)
			if err != nil {
				return fmt.Errorf("failed to list boards: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(boards) == 0 {
				fmt.Fprintf(out, "No boards found for team '%s'\n", team)
				return nil
			}
			fmt.Fprintf(out, "%-10s %-30s %s\n", "ID", "NAME", "CREATED BY")
			for _, b := range boards {
				fmt.Fprintf(out, "%-10s %-30s %s\n", printer.ShortID(b.ID), b.Name, b.CreatedBy)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team whose boards to list (required)")
	cmd.MarkFlagRequired("team")
	return cmd
}

func newBoardShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show BOARD_ID",
		Short: "Print a board with its columns and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			boardID, err := env.resolveBoard(ctx, args[0])
			if err != nil {
				return err
			}

			b, err := env.client.GetBoard(ctx, boardID)
			if err != nil {
				return storeError("show board", err)
			}
			columns, err := env.client.ListColumns(ctx, boardID)
			if err != nil {
				return fmt.Errorf("failed to list columns: %w", err)
			}
			tasks := make(map[string][]board.Task, len(columns))
			for _, col := range columns {
				list, err := env.client.ColumnTasks(ctx, col.ID)
				if err != nil {
					return fmt.Errorf("failed to read column %s: %w", col.Title, err)
				}
				tasks[col.ID] = reconcile.Visible(list)
			}

			printer.RenderBoard(cmd.OutOrStdout(), b, columns, tasks)
			return nil
		},
	}
}

func newBoardDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete BOARD_ID",
		Short: "Delete a board with all its columns and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			boardID, err := env.resolveBoard(ctx, args[0])
			if err != nil {
				return err
			}
			if err := env.client.DeleteBoard(ctx, boardID); err != nil {
				return storeError("delete board", err)
			}

			printer.Success("Deleted board %s\n", printer.ShortID(boardID))
			return nil
		},
	}
}

// currentUser is the default creator recorded on new records.
func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
