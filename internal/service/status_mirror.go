package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

const (
	statusTTL     = time.Hour
	statusTimeout = 2 * time.Second
)

// StatusMirror copies each user's upload slot to Redis so other processes
// can render the global indicator.
type StatusMirror struct {
	redis *redis.Client
	log   *slog.Logger
}

func NewStatusMirror(redisClient *redis.Client, log *slog.Logger) *StatusMirror {
	return &StatusMirror{redis: redisClient, log: logger.OrDefault(log)}
}

// Write is an upload.Listener. A slot that is no longer uploading is removed.
func (m *StatusMirror) Write(st model.UploadStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	key := StatusKey(st.UserID)
	if !st.Uploading {
		if err := m.redis.Del(ctx, key).Err(); err != nil {
			m.log.Warn("failed to clear upload status", "user_id", st.UserID, "error", err)
		}
		return
	}

	data, err := json.Marshal(st)
	if err != nil {
		m.log.Error("failed to marshal upload status", "error", err)
		return
	}
	if err := m.redis.Set(ctx, key, data, statusTTL).Err(); err != nil {
		m.log.Warn("failed to mirror upload status", "user_id", st.UserID, "error", err)
	}
}

// Read returns the mirrored slot, or an idle slot when none is stored.
func (m *StatusMirror) Read(ctx context.Context, userID string) (model.UploadStatus, error) {
	data, err := m.redis.Get(ctx, StatusKey(userID)).Bytes()
	if err == redis.Nil {
		return model.UploadStatus{UserID: userID, State: model.UploadIdle}, nil
	}
	if err != nil {
		return model.UploadStatus{}, err
	}
	var st model.UploadStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return model.UploadStatus{}, err
	}
	return st, nil
}

func StatusKey(userID string) string {
	return fmt.Sprintf("upload:status:%s", userID)
}
