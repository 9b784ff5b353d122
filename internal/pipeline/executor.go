package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/verbalia/qasmith/internal/enhance"
	"github.com/verbalia/qasmith/internal/job"
	"github.com/verbalia/qasmith/internal/qagen"
	"github.com/verbalia/qasmith/internal/storage"
)

// Job type tags, surfaced verbatim in job lookups.
const (
	JobTypeEnhancement = "answer_enhancement"
	JobTypeGeneration  = "qa_generation"
)

// DatasetSaver persists successful generation outputs.
type DatasetSaver interface {
	SaveDataset(d storage.Dataset) error
}

// Executor schedules pipeline runs as tracked jobs. Exactly one execution
// ever writes a given job's state; the executor is that execution.
type Executor struct {
	jobs     *job.Manager
	datasets DatasetSaver
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDatasetSaver makes the executor persist the result of every
// successful generation job as a dataset.
func WithDatasetSaver(ds DatasetSaver) ExecutorOption {
	return func(e *Executor) { e.datasets = ds }
}

// NewExecutor creates an Executor reporting into the given job manager.
func NewExecutor(jobs *job.Manager, opts ...ExecutorOption) *Executor {
	e := &Executor{jobs: jobs}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnhanceAsync schedules an enhancement batch as a detached job and
// returns the job id immediately.
func (e *Executor) EnhanceAsync(svc *enhance.Service, items []enhance.Item) (string, error) {
	return e.jobs.Create(JobTypeEnhancement, func(ctx context.Context, jobID string) {
		result, err := RunEnhancement(ctx, svc, items, e.progressPusher(jobID))
		if err != nil {
			e.fail(jobID, err)
			return
		}
		e.complete(jobID, result)
	})
}

// GenerateAsync schedules a QA generation run as a detached job and
// returns the job id immediately.
func (e *Executor) GenerateAsync(svc *qagen.Service, contexts []string, meta map[string]any) (string, error) {
	return e.jobs.Create(JobTypeGeneration, func(ctx context.Context, jobID string) {
		result, err := RunGeneration(ctx, svc, contexts, meta, e.progressPusher(jobID))
		if err != nil {
			e.fail(jobID, err)
			return
		}
		e.saveDataset(jobID, result, meta)
		e.complete(jobID, result)
	})
}

// saveDataset persists a successful generation output. Persistence is an
// observability concern: a save failure is logged, never surfaced as a job
// failure.
func (e *Executor) saveDataset(jobID string, result qagen.Result, meta map[string]any) {
	if e.datasets == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("serializing dataset failed", "job_id", jobID, "error", err)
		return
	}
	source := ""
	if meta != nil {
		if s, ok := meta["source"].(string); ok {
			source = s
		}
	}
	d := storage.Dataset{
		ID:          uuid.New().String(),
		Source:      source,
		QACount:     result.Total,
		PayloadJSON: string(payload),
	}
	if err := e.datasets.SaveDataset(d); err != nil {
		slog.Warn("saving dataset failed", "job_id", jobID, "error", err)
		return
	}
	slog.Info("dataset saved", "dataset_id", d.ID, "job_id", jobID, "qa_count", d.QACount)
}

func (e *Executor) progressPusher(jobID string) func(pct int) {
	return func(pct int) {
		if err := e.jobs.Apply(jobID, job.Update{Progress: &pct}); err != nil {
			slog.Warn("progress update failed", "job_id", jobID, "error", err)
		}
	}
}

// fail records the fault on the job exactly once. It is never re-raised:
// the submitter already received the job id and observes the fault by
// polling.
func (e *Executor) fail(jobID string, err error) {
	slog.Error("job failed", "job_id", jobID, "error", err)
	failed := job.StatusFailed
	if applyErr := e.jobs.Apply(jobID, job.Update{Status: &failed, Error: err.Error()}); applyErr != nil {
		slog.Error("recording job failure failed", "job_id", jobID, "error", applyErr)
	}
}

func (e *Executor) complete(jobID string, result any) {
	completed := job.StatusCompleted
	if err := e.jobs.Apply(jobID, job.Update{Status: &completed, Result: result}); err != nil {
		slog.Error("recording job completion failed", "job_id", jobID, "error", err)
	}
}
