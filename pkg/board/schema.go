package board

import "fmt"

// Redis key pattern helpers
//
// Key pattern: swimlane:{namespace}:{entity}:{uuid}
// Channel pattern: swimlane:{namespace}:{entity}:{uuid}:{event_type}_events

// BoardKey returns the Redis key for a board hash.
// Pattern: swimlane:{namespace}:board:{board_id}
func BoardKey(namespace, boardID string) string {
	return fmt.Sprintf("swimlane:%s:board:%s", namespace, boardID)
}

// TeamBoardsKey returns the Redis key for the set of board IDs owned by a team.
// Pattern: swimlane:{namespace}:team:{team_id}:boards
func TeamBoardsKey(namespace, teamID string) string {
	return fmt.Sprintf("swimlane:%s:team:%s:boards", namespace, teamID)
}

// BoardColumnsKey returns the Redis key for the set of column IDs on a board.
// Pattern: swimlane:{namespace}:board:{board_id}:columns
func BoardColumnsKey(namespace, boardID string) string {
	return fmt.Sprintf("swimlane:%s:board:%s:columns", namespace, boardID)
}

// BoardTasksKey returns the Redis key for the set of task IDs on a board.
// Pattern: swimlane:{namespace}:board:{board_id}:tasks
func BoardTasksKey(namespace, boardID string) string {
	return fmt.Sprintf("swimlane:%s:board:%s:tasks", namespace, boardID)
}

// ColumnKey returns the Redis key for a column hash.
// Pattern: swimlane:{namespace}:column:{column_id}
func ColumnKey(namespace, columnID string) string {
	return fmt.Sprintf("swimlane:%s:column:%s", namespace, columnID)
}

// ColumnTasksKey returns the Redis key for the set of task IDs owned by a column.
// Soft-deleted tasks stay in the set until their column is deleted.
// Pattern: swimlane:{namespace}:column:{column_id}:tasks
func ColumnTasksKey(namespace, columnID string) string {
	return fmt.Sprintf("swimlane:%s:column:%s:tasks", namespace, columnID)
}

// TaskKey returns the Redis key for a task hash.
// Pattern: swimlane:{namespace}:task:{task_id}
func TaskKey(namespace, taskID string) string {
	return fmt.Sprintf("swimlane:%s:task:%s", namespace, taskID)
}

// ColumnTaskEventsChannel returns the Pub/Sub channel notified whenever a task
// enters, leaves or changes inside a column.
// Pattern: swimlane:{namespace}:column:{column_id}:task_events
func ColumnTaskEventsChannel(namespace, columnID string) string {
	return fmt.Sprintf("swimlane:%s:column:%s:task_events", namespace, columnID)
}

// BoardColumnEventsChannel returns the Pub/Sub channel notified whenever the
// column set of a board changes.
// Pattern: swimlane:{namespace}:board:{board_id}:column_events
func BoardColumnEventsChannel(namespace, boardID string) string {
	return fmt.Sprintf("swimlane:%s:board:%s:column_events", namespace, boardID)
}

// taskKeyPattern returns the SCAN pattern for task keys starting with prefix.
func taskKeyPattern(namespace, prefix string) string {
	return fmt.Sprintf("swimlane:%s:task:%s*", namespace, prefix)
}

// columnKeyPattern returns the SCAN pattern for column keys starting with prefix.
func columnKeyPattern(namespace, prefix string) string {
	return fmt.Sprintf("swimlane:%s:column:%s*", namespace, prefix)
}

// boardKeyPattern returns the SCAN pattern for board keys starting with prefix.
func boardKeyPattern(namespace, prefix string) string {
	return fmt.Sprintf("swimlane:%s:board:%s*", namespace, prefix)
}
