// Package board provides type-safe Go definitions and the Redis-backed document
// store for swimlane Kanban boards.
//
// # Overview
//
// A team owns boards, a board owns ordered columns and a column owns ordered
// tasks. Ordering is expressed with a numeric rank (Order) that is not required
// to be contiguous. The store is the authoritative copy of that state; every
// client renders from live subscriptions and applies its own moves optimistically
// until the store's next snapshot replaces them.
//
// # Core Concepts
//
// Tasks are soft-deleted: the record is flagged and stays in its column's index
// so that in-flight reorder writes referencing it do not fail. Every read path
// above this package filters deleted tasks out.
//
// Columns and boards are hard-deleted and cascade: deleting a column removes its
// tasks, deleting a board removes its columns and tasks. Each cascade runs as one
// MULTI/EXEC transaction, so a subscriber never sees a column gone while its
// tasks remain.
//
// Reassignment batches (see ApplyReassignments) rewrite order and owning column
// of many tasks at once. The batch is atomic as observed by subscribers; records
// deleted concurrently are skipped and reported instead of failing the batch.
//
// # Live Queries
//
// SubscribeColumnTasks and SubscribeBoardColumns implement the "callback with
// the full current matching set" primitive on top of Redis Pub/Sub: every write
// publishes a ChangeEvent inside its transaction, and the subscription re-reads
// the query and delivers a complete snapshot.
//
//	sub, err := client.SubscribeColumnTasks(ctx, columnID)
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
//
//	for tasks := range sub.Events() {
//		render(tasks)
//	}
//
// # Redis Schema
//
// All Redis keys follow the pattern: swimlane:{namespace}:{entity}:{uuid}
//
// Boards: swimlane:{namespace}:board:{board_id}
// Team boards: swimlane:{namespace}:team:{team_id}:boards
// Board columns: swimlane:{namespace}:board:{board_id}:columns
// Board tasks: swimlane:{namespace}:board:{board_id}:tasks
// Columns: swimlane:{namespace}:column:{column_id}
// Column tasks: swimlane:{namespace}:column:{column_id}:tasks
// Tasks: swimlane:{namespace}:task:{task_id}
//
// Column task events: swimlane:{namespace}:column:{column_id}:task_events
// Board column events: swimlane:{namespace}:board:{board_id}:column_events
//
// # Consistency
//
// Concurrent writers touching the same task race with last-write-wins per field.
// No merge strategy is layered on top of what Redis provides.
package board
