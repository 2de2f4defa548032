package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/internal/upload"
)

const (
	TaskTypeUpload = "upload:recipe"
	QueueUploads   = "uploads"

	jobTTL = 24 * time.Hour
)

// UploadService turns a session's draft into a submission and runs it,
// either on the asynq queue or in a background goroutine.
type UploadService struct {
	studio      *StudioService
	pipeline    *upload.Pipeline
	status      *upload.StatusStore
	asynqClient *asynq.Client
	redis       *redis.Client
	log         *slog.Logger

	mu   sync.Mutex
	jobs map[string]*model.UploadJob
}

// NewUploadService wires the pipeline. asynqClient and redisClient may be nil:
// without a queue submissions run in-process, without Redis job records stay
// in memory.
func NewUploadService(studio *StudioService, pipeline *upload.Pipeline, status *upload.StatusStore, asynqClient *asynq.Client, redisClient *redis.Client, log *slog.Logger) *UploadService {
	s := &UploadService{
		studio:      studio,
		pipeline:    pipeline,
		status:      status,
		asynqClient: asynqClient,
		redis:       redisClient,
		log:         logger.OrDefault(log),
		jobs:        make(map[string]*model.UploadJob),
	}
	status.Subscribe(s.trackProgress)
	return s
}

// Submit validates the session's draft and starts uploading it. The session
// is sent home straight away and its form is frozen until the upload ends.
func (s *UploadService) Submit(ctx context.Context, sess *Session) (*model.SubmitResponse, error) {
	if sess.UserID == "" {
		return nil, model.ErrNotAuthenticated
	}
	if sess.composer.Uploading() {
		return nil, model.ErrUploadInProgress
	}

	draft, err := sess.composer.Snapshot()
	if err != nil {
		return nil, err
	}

	job := &model.UploadJob{
		ID:        uuid.New().String(),
		UserID:    sess.UserID,
		SessionID: sess.ID,
		State:     model.UploadUploading,
		CreatedAt: time.Now(),
	}

	if err := s.status.Start(job.UserID, job.ID, upload.IndicatorThumbnail(draft)); err != nil {
		return nil, err
	}
	sess.composer.SetUploading(true)
	sess.NavigateHome()
	s.saveJob(ctx, job)

	if err := s.dispatch(ctx, job, draft); err != nil {
		s.status.Clear(job.UserID, model.UploadFailed)
		sess.composer.SetUploading(false)
		s.finishJob(ctx, job.ID, err)
		return nil, err
	}

	return &model.SubmitResponse{JobID: job.ID, Status: model.UploadUploading}, nil
}

func (s *UploadService) dispatch(ctx context.Context, job *model.UploadJob, draft model.RecipeDraft) error {
	if s.asynqClient == nil {
		jobCopy := *job
		go s.Run(context.WithoutCancel(ctx), jobCopy, draft)
		return nil
	}

	task, err := NewUploadTask(job.ID, &model.UploadJobPayload{
		UserID:    job.UserID,
		SessionID: job.SessionID,
		Draft:     draft,
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueUploads),
		asynq.MaxRetry(0),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Run uploads a snapshot and settles the owning session: a success empties
// its form, a failure keeps the draft and alerts. There is no automatic retry.
func (s *UploadService) Run(ctx context.Context, job model.UploadJob, draft model.RecipeDraft) error {
	err := s.pipeline.Submit(ctx, job, draft, nil)

	if sess, lookupErr := s.studio.Get(job.SessionID, job.UserID); lookupErr == nil {
		if err != nil {
			sess.notify(model.AlertUploadFailed)
		} else {
			sess.composer.Reset()
		}
		sess.composer.SetUploading(false)
	}

	s.finishJob(ctx, job.ID, err)
	return err
}

// Status returns the user's upload slot.
func (s *UploadService) Status(userID string) model.UploadStatus {
	return s.status.Get(userID)
}

// Job returns a submission record owned by userID.
func (s *UploadService) Job(ctx context.Context, jobID, userID string) (*model.UploadJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	var out model.UploadJob
	if ok {
		out = *job
	}
	s.mu.Unlock()

	if !ok {
		stored, err := s.loadJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		out = *stored
	}
	if out.UserID != userID {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
	}
	return &out, nil
}

func (s *UploadService) trackProgress(st model.UploadStatus) {
	if st.JobID == "" || !st.Uploading {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[st.JobID]; ok && st.Progress > job.Progress {
		job.Progress = st.Progress
	}
}

func (s *UploadService) finishJob(ctx context.Context, jobID string, runErr error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if runErr != nil {
		job.State = model.UploadFailed
		job.Error = runErr.Error()
	} else {
		job.State = model.UploadDone
		job.Progress = 100
	}
	snapshot := *job
	s.mu.Unlock()

	s.saveJob(ctx, &snapshot)
}

func (s *UploadService) saveJob(ctx context.Context, job *model.UploadJob) {
	s.mu.Lock()
	if cur, ok := s.jobs[job.ID]; ok {
		*cur = *job
	} else {
		jobCopy := *job
		s.jobs[job.ID] = &jobCopy
	}
	s.mu.Unlock()

	if s.redis == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		s.log.Error("failed to marshal job", "job_id", job.ID, "error", err)
		return
	}
	if err := s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err(); err != nil {
		s.log.Warn("failed to save job", "job_id", job.ID, "error", err)
	}
}

func (s *UploadService) loadJob(ctx context.Context, jobID string) (*model.UploadJob, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
	}
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
		}
		return nil, err
	}

	var job model.UploadJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func jobKey(id string) string {
	return fmt.Sprintf("upload:job:%s", id)
}

// NewUploadTask builds the asynq task for a queued submission.
func NewUploadTask(jobID string, payload *model.UploadJobPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(uploadTask{JobID: jobID, Payload: body})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUpload, data), nil
}

// ParseUploadTask reverses NewUploadTask.
func ParseUploadTask(t *asynq.Task) (string, *model.UploadJobPayload, error) {
	var wrapper uploadTask
	if err := json.Unmarshal(t.Payload(), &wrapper); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	var payload model.UploadJobPayload
	if err := json.Unmarshal(wrapper.Payload, &payload); err != nil {
		return wrapper.JobID, nil, fmt.Errorf("failed to unmarshal upload payload: %w", err)
	}
	return wrapper.JobID, &payload, nil
}

type uploadTask struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}
