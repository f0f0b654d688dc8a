package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/swimlane/internal/drag"
	"github.com/dyluth/swimlane/internal/printer"
	"github.com/spf13/cobra"
)

// syncTimeout bounds how long drag waits for the live feeds to show a task.
const syncTimeout = 5 * time.Second

func newDragCmd(opts *globalOptions) *cobra.Command {
	var boardArg, taskArg, columnArg, beforeArg, slot string

	cmd := &cobra.Command{
		Use:   "drag",
		Short: "Replay a drag-and-drop gesture against a live board",
		Long: `Pick up a task, hover one drop target and drop it, exactly as an
interactive client would. The move is applied to the local board view first
and persisted in the background; drag waits for the write before exiting.

Exactly one target:
  --before TASK             insert before another task
  --column COL              append to the end of a column
  --column COL --slot top   insert at the top of a column
  --column COL --slot bottom
  --column COL --slot after:N   insert after position N

Examples:
  swimlane drag --board 3f2a9c --task 9b1c3d --before 1a2b3c
  swimlane drag --board 3f2a9c --task 9b1c3d --column 7e4f10 --slot top`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if (beforeArg == "") == (columnArg == "") {
				return printer.Error("exactly one drop target required", "Give either --before or --column.", nil)
			}
			if slot != "" && columnArg == "" {
				return printer.Error("--slot needs --column", "Slots are positions inside a column.", nil)
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
			taskID, err := env.resolveTask(ctx, taskArg)
			if err != nil {
				return err
			}

			var target drag.Target
			if beforeArg != "" {
				beforeID, err := env.resolveTask(ctx, beforeArg)
				if err != nil {
					return err
				}
				target = drag.Target{Kind: drag.TargetTask, TaskID: beforeID}
			} else {
				columnID, err := env.resolveColumn(ctx, columnArg)
				if err != nil {
					return err
				}
				target, err = parseSlot(columnID, slot)
				if err != nil {
					return printer.Error("invalid slot", err.Error(), []string{"Valid slots: top, bottom, after:N"})
				}
			}

			s, err := env.openSession(ctx, boardID)
			if err != nil {
				return storeError("open board", err)
			}
			defer s.Close()

			if err := s.WaitForSync(ctx, syncTimeout); err != nil {
				return storeError("sync board", err)
			}
			for _, id := range []string{taskID, target.TaskID} {
				if id == "" {
					continue
				}
				if _, err := s.WaitForTask(ctx, id, syncTimeout); err != nil {
					return printer.Error("task not on this board", err.Error(), nil)
				}
			}

			ctrl := s.Controller()
			if err := ctrl.PickUp(taskID); err != nil {
				return storeError("pick up task", err)
			}
			ctrl.HoverTarget(target)
			outcome, err := ctrl.Drop(ctx)
			if err != nil {
				return storeError("drop task", err)
			}
			ctrl.Wait()

			select {
			case perr := <-ctrl.Errors():
				return storeError("persist drop", perr)
			default:
			}

			switch outcome.Kind {
			case drag.OutcomeMoved:
				printer.Success("Dropped %s on %s (%d position(s) written)\n",
					printer.ShortID(taskID), target, len(outcome.Batch))
			case drag.OutcomeNoOp:
				printer.Info("Task %s is already there\n", printer.ShortID(taskID))
			case drag.OutcomeAborted:
				printer.Warning("Drop aborted: %s\n", outcome.Reason)
			default:
				printer.Warning("Drop cancelled\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&boardArg, "board", "b", "", "Board ID (required)")
	cmd.Flags().StringVar(&taskArg, "task", "", "Task to drag (required)")
	cmd.Flags().StringVar(&columnArg, "column", "", "Drop on a column")
	cmd.Flags().StringVar(&beforeArg, "before", "", "Drop before this task")
	cmd.Flags().StringVar(&slot, "slot", "", "Slot inside --column: top, bottom or after:N")
	cmd.MarkFlagRequired("board")
	cmd.MarkFlagRequired("task")
	return cmd
}

// parseSlot builds a column or slot target. An empty slot targets the column
// itself.
func parseSlot(columnID, slot string) (drag.Target, error) {
	switch {
	case slot == "":
		return drag.Target{Kind: drag.TargetColumn, ColumnID: columnID}, nil
	case slot == "top":
		return drag.Target{Kind: drag.TargetSlot, ColumnID: columnID, Slot: drag.SlotTop}, nil
	case slot == "bottom":
		return drag.Target{Kind: drag.TargetSlot, ColumnID: columnID, Slot: drag.SlotBottom}, nil
	case strings.HasPrefix(slot, "after:"):
		n, err := strconv.Atoi(strings.TrimPrefix(slot, "after:"))
		if err != nil || n < 0 {
			return drag.Target{}, fmt.Errorf("invalid slot index in %q", slot)
		}
		return drag.Target{Kind: drag.TargetSlot, ColumnID: columnID, Slot: drag.SlotAfter, Index: n}, nil
	default:
		return drag.Target{}, fmt.Errorf("unknown slot %q", slot)
	}
}
