package upload

import (
	"sync"
	"time"

	"github.com/freshrecipes/studio/internal/model"
)

// Listener is told about every change to a user's upload slot.
type Listener func(model.UploadStatus)

// StatusStore is the upload-status slot that indicators render, one per user.
// Only the pipeline and the submit path write to it.
type StatusStore struct {
	mu        sync.Mutex
	slots     map[string]model.UploadStatus
	listeners []Listener
	now       func() time.Time
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		slots: make(map[string]model.UploadStatus),
		now:   time.Now,
	}
}

// Subscribe registers fn for all future changes.
func (s *StatusStore) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns the user's slot, or an idle slot when nothing is uploading.
func (s *StatusStore) Get(userID string) model.UploadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.slots[userID]; ok {
		return st
	}
	return model.UploadStatus{UserID: userID, State: model.UploadIdle}
}

// Start puts the user's slot into the uploading state at zero progress. It
// fails with model.ErrUploadInProgress when a different job holds the slot;
// starting the same job again is a no-op.
func (s *StatusStore) Start(userID, jobID, thumbnail string) error {
	s.mu.Lock()
	if cur, ok := s.slots[userID]; ok && cur.Uploading {
		s.mu.Unlock()
		if cur.JobID == jobID {
			return nil
		}
		return model.ErrUploadInProgress
	}
	st := model.UploadStatus{
		UserID:    userID,
		JobID:     jobID,
		State:     model.UploadUploading,
		Uploading: true,
		Progress:  0,
		Thumbnail: thumbnail,
		UpdatedAt: s.now(),
	}
	s.slots[userID] = st
	listeners := s.listeners
	s.mu.Unlock()

	emit(listeners, st)
	return nil
}

// Progress raises the slot's progress. Lower or equal values are ignored so
// the reported progress never goes backwards.
func (s *StatusStore) Progress(userID string, percent int) {
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	st, ok := s.slots[userID]
	if !ok || !st.Uploading || percent <= st.Progress {
		s.mu.Unlock()
		return
	}
	st.Progress = percent
	st.UpdatedAt = s.now()
	s.slots[userID] = st
	listeners := s.listeners
	s.mu.Unlock()

	emit(listeners, st)
}

// Clear ends the upload. Listeners see the final outcome once, then the slot
// is emptied.
func (s *StatusStore) Clear(userID string, outcome model.UploadState) {
	s.mu.Lock()
	st, ok := s.slots[userID]
	if !ok {
		st = model.UploadStatus{UserID: userID}
	}
	delete(s.slots, userID)
	listeners := s.listeners
	s.mu.Unlock()

	st.State = outcome
	st.Uploading = false
	st.Progress = 0
	st.UpdatedAt = s.now()
	emit(listeners, st)
}

func emit(listeners []Listener, st model.UploadStatus) {
	for _, fn := range listeners {
		fn(st)
	}
}
