package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ArchivedJob is the durable record of a finished job. Only terminal jobs
// are archived; the live registry stays in memory.
type ArchivedJob struct {
	ID         string
	Type       string
	Status     string // "completed", "failed"
	Progress   int
	ResultJSON string // terminal result serialized as JSON, empty on failure
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Dataset is a persisted QA generation output.
type Dataset struct {
	ID          string
	Source      string
	QACount     int
	PayloadJSON string // the full generation result as JSON
	CreatedAt   time.Time
}
