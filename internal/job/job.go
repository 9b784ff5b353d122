package job

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job id is unknown to the registry.
var ErrJobNotFound = errors.New("job not found")

// Status is the lifecycle state of an asynchronous job.
// Valid transitions: pending → running → {completed | failed}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one asynchronously tracked unit of pipeline work. Reads go through
// Manager.Get, which returns a copy — callers never hold live registry state.
type Job struct {
	ID        string    `json:"job_id"`
	Type      string    `json:"type"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update is a partial job mutation. Nil fields are left untouched; Result is
// only applied together with StatusCompleted and Error with StatusFailed.
type Update struct {
	Status   *Status
	Progress *int
	Result   any
	Error    string
}

// Runner is the detached unit of work bound to a job id. It communicates
// completion exclusively through Manager.Apply — never by callback into the
// request context that created the job, which may already be gone.
type Runner func(ctx context.Context, jobID string)

// Archiver persists jobs that reached a terminal state.
type Archiver interface {
	ArchiveJob(j Job) error
}
