package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

const defaultWorkers = 4

// Manager owns the registry of asynchronous jobs. It is the only writer of
// job state: pipeline executions report through Apply, readers poll through
// Get. All per-job mutations happen under one lock, so a reader never sees
// a torn update mixing old progress with new status.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	pool     *ants.Pool
	archiver Archiver
}

// Option configures a Manager.
type Option func(*Manager)

// WithArchiver sets the hook invoked once per job when it reaches a
// terminal state.
func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

// NewManager creates a Manager whose detached executions run on a bounded
// goroutine pool of the given size (default 4 if size < 1).
func NewManager(workers int, opts ...Option) (*Manager, error) {
	if workers < 1 {
		workers = defaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	m := &Manager{
		jobs: make(map[string]*Job),
		pool: pool,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close releases the worker pool. Queued executions are abandoned; live
// jobs stay readable in whatever state they reached.
func (m *Manager) Close() {
	m.pool.Release()
}

// Create allocates a new pending job and schedules run as a detached
// execution bound to the job id. The id is returned immediately: the pool
// handoff happens on its own goroutine, so a saturated pool parks the
// handoff, never the caller. A handoff the pool rejects (released pool)
// marks the job failed instead.
func (m *Manager) Create(jobType string, run Runner) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	j := &Job{
		ID:        id,
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()

	go func() {
		if err := m.pool.Submit(func() { run(context.Background(), id) }); err != nil {
			failed := StatusFailed
			m.Apply(id, Update{Status: &failed, Error: fmt.Sprintf("scheduling execution: %v", err)})
		}
	}()

	slog.Info("job created", "job_id", id, "type", jobType)
	return id, nil
}

// Apply applies a partial update to the job. Progress is monotone: values
// not strictly greater than the current one are ignored. Once a job is
// terminal every further update is ignored. The first effective progress
// or running update moves a pending job to running.
func (m *Manager) Apply(id string, u Update) error {
	var archived *Job

	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	if j.Status.Terminal() {
		m.mu.Unlock()
		slog.Warn("job update ignored: terminal state", "job_id", id, "status", j.Status)
		return nil
	}

	if u.Progress != nil && *u.Progress > j.Progress {
		j.Progress = *u.Progress
		if j.Status == StatusPending {
			j.Status = StatusRunning
		}
	}

	if u.Status != nil {
		switch *u.Status {
		case StatusRunning:
			if j.Status == StatusPending {
				j.Status = StatusRunning
			}
		case StatusCompleted:
			j.Status = StatusCompleted
			j.Progress = 100
			j.Result = u.Result
		case StatusFailed:
			j.Status = StatusFailed
			j.Error = u.Error
		}
	}
	j.UpdatedAt = time.Now().UTC()

	if j.Status.Terminal() {
		cp := *j
		archived = &cp
	}
	m.mu.Unlock()

	if archived != nil {
		slog.Info("job finished", "job_id", id, "status", archived.Status)
		if m.archiver != nil {
			if err := m.archiver.ArchiveJob(*archived); err != nil {
				slog.Warn("archiving job failed", "job_id", id, "error", err)
			}
		}
	}
	return nil
}

// Get returns a copy of the job's current state.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *j, nil
}
