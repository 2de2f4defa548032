package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/internal/service"
)

// Runner runs one submission to completion.
type Runner interface {
	Run(ctx context.Context, job model.UploadJob, draft model.RecipeDraft) error
}

// UploadWorker processes queued recipe submissions.
type UploadWorker struct {
	runner Runner
	log    *slog.Logger
}

func NewUploadWorker(runner Runner, log *slog.Logger) *UploadWorker {
	return &UploadWorker{runner: runner, log: logger.OrDefault(log)}
}

// ProcessTask handles an upload:recipe task. Failures are not retried; the
// user resubmits.
func (w *UploadWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, payload, err := service.ParseUploadTask(t)
	if err != nil {
		w.log.Error("invalid upload task", "job_id", jobID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	w.log.Info("starting upload job", "job_id", jobID, "user_id", payload.UserID)
	started := time.Now()

	job := model.UploadJob{
		ID:        jobID,
		UserID:    payload.UserID,
		SessionID: payload.SessionID,
		State:     model.UploadUploading,
		CreatedAt: started,
	}
	if err := w.runner.Run(ctx, job, payload.Draft); err != nil {
		return fmt.Errorf("upload job %s: %v: %w", jobID, err, asynq.SkipRetry)
	}

	w.log.Info("upload job completed", "job_id", jobID, "duration", time.Since(started))
	return nil
}
