package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/swimlane/internal/printer"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newColumnCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add, delete and reorder columns",
	}
	cmd.AddCommand(
		newColumnAddCmd(opts),
		newColumnDeleteCmd(opts),
		newColumnMoveCmd(opts),
	)
	return cmd
}

func newColumnAddCmd(opts *globalOptions) *cobra.Command {
	var boardArg, title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a column to a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			boardID, err := env.resolveBoard(ctx, boardArg)
			if err != nil {
				return err
			}
			existing, err := env.client.ListColumns(ctx, boardID)
			if err != nil {
				return fmt.Errorf("failed to list columns: %w", err)
			}
			order := 0.0
			if n := len(existing); n > 0 {
				order = existing[n-1].Order + 1
			}

			col := &board.Column{ID: uuid.NewString(), Title: title, Order: order, BoardID: boardID}
			if err := env.client.CreateColumn(ctx, col); err != nil {
				return storeError("add column", err)
			}

			printer.Success("Added column '%s' (%s)\n", col.Title, printer.ShortID(col.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&boardArg, "board", "b", "", "Board ID (required)")
	cmd.Flags().StringVar(&title, "title", "", "Column title (required)")
	cmd.MarkFlagRequired("board")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newColumnDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete COLUMN_ID",
		Short: "Delete a column and every task in it",
		Long: `Delete a column and every task in it in one atomic write. Anyone
watching the board sees the column and its tasks disappear together.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			columnID, err := env.resolveColumn(ctx, args[0])
			if err != nil {
				return err
			}
			if err := env.client.DeleteColumn(ctx, columnID); err != nil {
				return storeError("delete column", err)
			}

			printer.Success("Deleted column %s\n", printer.ShortID(columnID))
			return nil
		},
	}
}

func newColumnMoveCmd(opts *globalOptions) *cobra.Command {
	var order float64

	cmd := &cobra.Command{
		Use:   "move COLUMN_ID",
		Short: "Change the rank of a column on its board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			columnID, err := env.resolveColumn(ctx, args[0])
			if err != nil {
				return err
			}
			if err := env.client.UpdateColumnOrder(ctx, columnID, order); err != nil {
				return storeError("move column", err)
			}

			printer.Success("Moved column %s to order %s\n", printer.ShortID(columnID), board.FormatOrder(order))
			return nil
		},
	}

	cmd.Flags().Float64Var(&order, "order", 0, "New rank among the board's columns (required)")
	cmd.MarkFlagRequired("order")
	return cmd
}
