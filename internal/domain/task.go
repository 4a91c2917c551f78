package domain

import (
	"encoding/json"
	"time"
)

// TaskRecord is one completed unit of work within a session. The payload is
// task-specific and opaque to the workflow.
type TaskRecord struct {
	ID        string
	SessionID string
	TaskType  TaskType
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionProgress summarizes a session's ledger for progress indicators.
type SessionProgress struct {
	SessionID     string
	Counts        map[TaskType]int
	DistinctTypes int
	CompletionPct float64
}
