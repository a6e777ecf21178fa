package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/laserlines/internal/engrave"
	"github.com/cwbudde/laserlines/internal/fit"
	"github.com/cwbudde/laserlines/internal/store"
)

// runJob executes an engraving job in the background.
// If runStore is not nil the run record and artifacts are persisted under the
// job ID.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		jm.finish(jobID, nil)
		return ctx.Err()
	default:
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}
	broadcastState(jm, jobID)

	slog.Info("Starting job", "job_id", jobID, "image", job.Config.Image, "algorithm", job.Config.Algorithm)

	onEpoch := func(stats fit.EpochStats) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Epoch = stats.Epoch
			j.Epochs = stats.Epochs
			j.Applied += stats.Applied
			j.Mean = stats.Mean
		})
		broadcastState(jm, jobID)
	}

	outcome, err := engrave.Run(ctx, job.Config, engrave.Options{
		Store:   runStore,
		RunID:   jobID,
		OnEpoch: onEpoch,
	})
	jm.finish(jobID, outcome)

	switch {
	case err == nil:
		markJobCompleted(jm, jobID, outcome)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		markJobCancelled(jm, jobID)
	default:
		markJobFailed(jm, jobID, err)
	}
	broadcastState(jm, jobID)
	return err
}

// broadcastState sends the current job state to stream subscribers
func broadcastState(jm *JobManager, jobID string) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(eventFromJob(job))
}

func markJobCompleted(jm *JobManager, jobID string, outcome *engrave.Outcome) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Segments = outcome.Run.Segments
		j.EndTime = &endTime
	})
	slog.Info("Job completed",
		"job_id", jobID,
		"segments", outcome.Run.Segments,
		"elapsed", outcome.Run.FinishedAt.Sub(outcome.Run.StartedAt),
	)
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
