package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paperchat/pkg/queue"
	"paperchat/pkg/store"
)

// ErrNoJobQueue reports that the app was built without a Redis job queue.
var ErrNoJobQueue = errors.New("job queue not configured")

// StartSummarize enqueues an asynchronous summarization of an ingested
// file and returns the job to poll.
func (a *App) StartSummarize(ctx context.Context, id int64) (queue.JobStatus, error) {
	if a.jobs == nil {
		return queue.JobStatus{}, ErrNoJobQueue
	}
	// Fail fast on unknown ids instead of queueing a doomed job.
	if _, err := a.mappings.GetIngested(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return queue.JobStatus{}, fmt.Errorf("document: start summarize: ingested doc %d: %w: %w", id, ErrNotFound, err)
		}
		return queue.JobStatus{}, fmt.Errorf("document: start summarize: ingested doc %d: %w: %w", id, ErrInternal, err)
	}
	job, err := a.jobs.Enqueue(ctx, id)
	if err != nil {
		return queue.JobStatus{}, fmt.Errorf("document: start summarize: enqueue file=%d: %w: %w", id, ErrInternal, err)
	}
	return job, nil
}

// SummarizeJob reports the status of an asynchronous summarization.
func (a *App) SummarizeJob(ctx context.Context, jobID string) (queue.JobStatus, error) {
	if a.jobs == nil {
		return queue.JobStatus{}, ErrNoJobQueue
	}
	job, ok, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		return queue.JobStatus{}, fmt.Errorf("document: summarize job %s: %w: %w", jobID, ErrInternal, err)
	}
	if !ok {
		return queue.JobStatus{}, fmt.Errorf("document: summarize job %s: %w", jobID, ErrNotFound)
	}
	return job, nil
}

// StartWorker launches queue consumers that run Summarize for each job.
func (a *App) StartWorker(ctx context.Context, concurrency int) error {
	if a.jobs == nil {
		return ErrNoJobQueue
	}
	a.jobs.Start(ctx, concurrency, func(jobCtx context.Context, job queue.JobStatus) error {
		result, err := a.Summarize(jobCtx, job.FileID)
		if err != nil {
			slog.Error("summarize job failed", "jobId", job.ID, "fileId", job.FileID, "err", err)
			return err
		}
		slog.Info("summarize job done", "jobId", job.ID, "fileId", job.FileID, "summaryId", result.SummaryID)
		return nil
	})
	return nil
}
