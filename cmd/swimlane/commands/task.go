package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/swimlane/internal/filter"
	"github.com/dyluth/swimlane/internal/listing"
	"github.com/dyluth/swimlane/internal/ordering"
	"github.com/dyluth/swimlane/internal/printer"
	"github.com/dyluth/swimlane/internal/reconcile"
	"github.com/dyluth/swimlane/internal/store"
	"github.com/dyluth/swimlane/internal/timespec"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTaskCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, edit, move and inspect tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(opts),
		newTaskEditCmd(opts),
		newTaskMoveCmd(opts),
		newTaskReorderCmd(opts),
		newTaskDeleteCmd(opts),
		newTaskListCmd(opts),
		newTaskShowCmd(opts),
	)
	return cmd
}

func newTaskAddCmd(opts *globalOptions) *cobra.Command {
	var columnArg, title, description, assignee, priority, deadline, createdBy string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to the end of a column",
		Long: `Add a task to the end of a column.

The new task is ranked one above the highest order in the column rather than
at order 0, so it lists last straight away. The column is renumbered on the
next move as usual.

Examples:
  swimlane task add --column 3f2a9c --title "Fix login" --priority high
  swimlane task add --column 3f2a9c --title "Write docs" --deadline 2025-11-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			p := board.Priority(priority)
			if err := p.Validate(); err != nil {
				return printer.Error("invalid priority", err.Error(), []string{"Valid priorities: low, medium, high"})
			}
			var deadlineMs int64
			if deadline != "" {
				ms, err := timespec.ParseDeadline(deadline)
				if err != nil {
					return printer.Error("invalid deadline", err.Error(), nil)
				}
				deadlineMs = ms
			}

			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			columnID, err := env.resolveColumn(ctx, columnArg)
			if err != nil {
				return err
			}
			col, err := env.client.GetColumn(ctx, columnID)
			if err != nil {
				return storeError("add task", err)
			}
			order, err := env.client.NextTaskOrder(ctx, columnID)
			if err != nil {
				return fmt.Errorf("failed to rank task: %w", err)
			}

			task := &board.Task{
				ID:          uuid.NewString(),
				Title:       title,
				Description: description,
				Assignee:    assignee,
				Priority:    p,
				ColumnID:    columnID,
				BoardID:     col.BoardID,
				Order:       order,
				CreatedBy:   createdBy,
				DeadlineMs:  deadlineMs,
			}
			if err := env.client.CreateTask(ctx, task); err != nil {
				return storeError("add task", err)
			}

			printer.Success("Added task '%s' (%s) to %s\n", task.Title, printer.ShortID(task.ID), col.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&columnArg, "column", "", "Column ID (required)")
	cmd.Flags().StringVar(&title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Free-text description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assigned user")
	cmd.Flags().StringVar(&priority, "priority", string(board.PriorityMedium), "Priority: low, medium or high")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (date, RFC3339 or duration like +48h)")
	cmd.Flags().StringVar(&createdBy, "by", currentUser(), "Creating user")
	cmd.MarkFlagRequired("column")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskEditCmd(opts *globalOptions) *cobra.Command {
	var title, description, assignee, priority, deadline string

	cmd := &cobra.Command{
		Use:   "edit TASK_ID",
		Short: "Change the fields of a task",
		Long: `Change the fields of a task. Only the flags given are written; each
field is last-write-wins.

Examples:
  swimlane task edit 9b1c3d --assignee bob --priority low
  swimlane task edit 9b1c3d --deadline none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			flags := cmd.Flags()

			var upd board.TaskUpdate
			if flags.Changed("title") {
				upd.Title = &title
			}
			if flags.Changed("description") {
				upd.Description = &description
			}
			if flags.Changed("assignee") {
				upd.Assignee = &assignee
			}
			if flags.Changed("priority") {
				p := board.Priority(priority)
				if err := p.Validate(); err != nil {
					return printer.Error("invalid priority", err.Error(), []string{"Valid priorities: low, medium, high"})
				}
				upd.Priority = &p
			}
			if flags.Changed("deadline") {
				ms, err := timespec.ParseDeadline(deadline)
				if err != nil {
					return printer.Error("invalid deadline", err.Error(), nil)
				}
				upd.DeadlineMs = &ms
			}
			if upd == (board.TaskUpdate{}) {
				return printer.Error("nothing to change", "No field flags were given.",
					[]string{"Pass at least one of --title, --description, --assignee, --priority, --deadline"})
			}

			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			taskID, err := env.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			if err := env.client.UpdateTask(ctx, taskID, upd); err != nil {
				return storeError("edit task", err)
			}

			printer.Success("Updated task %s\n", printer.ShortID(taskID))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "New assignee (empty to unassign)")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority: low, medium or high")
	cmd.Flags().StringVar(&deadline, "deadline", "", "New deadline, or 'none' to clear")
	return cmd
}

func newTaskMoveCmd(opts *globalOptions) *cobra.Command {
	var toArg string
	var index int

	cmd := &cobra.Command{
		Use:   "move TASK_ID",
		Short: "Move a task to another column",
		Long: `Move a task to another column. Without --index the task is appended to
the end of the target column; with --index it is inserted at that position
and both columns are renumbered in one atomic write.

Examples:
  swimlane task move 9b1c3d --to 7e4f10
  swimlane task move 9b1c3d --to 7e4f10 --index 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			taskID, err := env.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			targetID, err := env.resolveColumn(ctx, toArg)
			if err != nil {
				return err
			}

			task, source, err := loadTaskAndColumn(ctx, env, taskID)
			if err != nil {
				return err
			}
			if task.ColumnID == targetID {
				return printer.Error("task is already in that column", "Moving within a column is a reorder.",
					[]string{fmt.Sprintf("Reorder instead:\n  swimlane task reorder %s --index <n>", printer.ShortID(taskID))})
			}
			target, err := env.client.ColumnTasks(ctx, targetID)
			if err != nil {
				return fmt.Errorf("failed to read target column: %w", err)
			}
			target = reconcile.Visible(target)

			var batch []board.Reassignment
			if cmd.Flags().Changed("index") {
				move, err := ordering.MoveAcrossColumns(task, targetID, index, target, source)
				if err != nil {
					return storeError("move task", err)
				}
				batch = move.Batch()
			} else {
				batch = []board.Reassignment{ordering.AppendToColumnEnd(task, targetID, len(target))}
			}

			return persist(ctx, env, "move task", batch)
		},
	}

	cmd.Flags().StringVar(&toArg, "to", "", "Target column ID (required)")
	cmd.Flags().IntVar(&index, "index", 0, "Insert position in the target column (default: append)")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newTaskReorderCmd(opts *globalOptions) *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "reorder TASK_ID",
		Short: "Move a task to a new position within its column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			taskID, err := env.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			task, list, err := loadTaskAndColumn(ctx, env, taskID)
			if err != nil {
				return err
			}

			batch, err := ordering.ReorderWithinColumn(list, ordering.IndexOf(list, task.ID), index)
			if err != nil {
				return storeError("reorder task", err)
			}
			if len(batch) == 0 {
				printer.Info("Task %s is already at position %d\n", printer.ShortID(taskID), index)
				return nil
			}
			return persist(ctx, env, "reorder task", batch)
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "New position within the column, 0 is the top (required)")
	cmd.MarkFlagRequired("index")
	return cmd
}

func newTaskDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TASK_ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			taskID, err := env.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			if err := env.client.SoftDeleteTask(ctx, taskID); err != nil {
				return storeError("delete task", err)
			}

			printer.Success("Deleted task %s\n", printer.ShortID(taskID))
			return nil
		},
	}
}

func newTaskListCmd(opts *globalOptions) *cobra.Command {
	var boardArg, output, since, until, title, assignee, priority string
	var overdue bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks of a board with filtering",
		Long: `List the tasks of a board, column by column in board order.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one task per line

Filters (all ANDed):
  --since / --until  - last update time (duration like 2h, or RFC3339)
  --title            - case-insensitive glob on the title ("fix*")
  --assignee         - exact assignee
  --priority         - exact priority
  --overdue          - deadline already passed

Examples:
  swimlane task list --board 3f2a9c --priority high
  swimlane task list --board 3f2a9c --output jsonl --since 1h | jq .title`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var format listing.OutputFormat
			switch output {
			case "default":
				format = listing.OutputFormatDefault
			case "jsonl":
				format = listing.OutputFormatJSONL
			default:
				return printer.Error("invalid output format", fmt.Sprintf("Unknown format: %s", output),
					[]string{"Valid formats: default, jsonl"})
			}

			window, err := timespec.ParseUpdateWindow(since, until)
			if err != nil {
				return printer.Error("invalid time filter", err.Error(), nil)
			}
			criteria := &filter.Criteria{
				SinceTimestampMs: window.SinceMs,
				UntilTimestampMs: window.UntilMs,
				TitleGlob:        title,
				Assignee:         assignee,
				Priority:         board.Priority(priority),
			}
			if priority != "" {
				if err := criteria.Priority.Validate(); err != nil {
					return printer.Error("invalid priority", err.Error(), []string{"Valid priorities: low, medium, high"})
				}
			}
			if overdue {
				criteria.Overdue = time.Now().UnixMilli()
			}

			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			boardID, err := env.resolveBoard(ctx, boardArg)
			if err != nil {
				return err
			}
			if err := listing.ListTasks(ctx, env.client, boardID, format, criteria, cmd.OutOrStdout()); err != nil {
				return storeError("list tasks", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&boardArg, "board", "b", "", "Board ID (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")
	cmd.Flags().StringVar(&since, "since", "", "Tasks updated after time (duration or RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Tasks updated before time (duration or RFC3339)")
	cmd.Flags().StringVar(&title, "title", "", "Filter by title (glob pattern)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Filter by assignee (exact match)")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "Only tasks whose deadline has passed")
	cmd.MarkFlagRequired("board")
	return cmd
}

func newTaskShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Print a task as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			env, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer env.Close()

			taskID, err := env.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			if err := listing.GetTask(ctx, env.client, taskID, cmd.OutOrStdout()); err != nil {
				return storeError("show task", err)
			}
			return nil
		},
	}
}

// loadTaskAndColumn returns a live task and the visible tasks of its column.
func loadTaskAndColumn(ctx context.Context, env *environment, taskID string) (board.Task, []board.Task, error) {
	task, err := env.client.GetTask(ctx, taskID)
	if err != nil {
		return board.Task{}, nil, storeError("load task", err)
	}
	if task.Deleted {
		return board.Task{}, nil, storeError("load task", &board.NotFoundError{Kind: "task", ID: taskID})
	}
	list, err := env.client.ColumnTasks(ctx, task.ColumnID)
	if err != nil {
		return board.Task{}, nil, fmt.Errorf("failed to read column: %w", err)
	}
	return *task, reconcile.Visible(list), nil
}

// persist writes batch through the store adapter and reports skipped entries.
func persist(ctx context.Context, env *environment, action string, batch []board.Reassignment) error {
	res, err := env.adapter().PersistReassignment(ctx, batch)
	if err != nil {
		return storeError(action, err)
	}
	reportResult(res)
	return nil
}

func reportResult(res *store.Result) {
	printer.Success("Wrote %d task position(s)\n", len(res.Applied))
	if len(res.Skipped) > 0 {
		printer.Warning("Skipped %d task(s) deleted concurrently\n", len(res.Skipped))
	}
}
