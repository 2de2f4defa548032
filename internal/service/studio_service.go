package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freshrecipes/studio/internal/autocomplete"
	"github.com/freshrecipes/studio/internal/capture"
	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/composer"
	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/edit"
	"github.com/freshrecipes/studio/internal/frames"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/metrics"
	"github.com/freshrecipes/studio/internal/model"
)

// MediaTools renders stills from a video and measures it.
type MediaTools interface {
	client.FrameExtractor
	client.Thumbnailer
	client.DurationProber
}

// Session is one device's pass through capture, edit and compose.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	composer *composer.Composer
	cancel   context.CancelFunc

	mu       sync.Mutex
	screen   model.Screen
	recorded *model.MediaReference
	alerts   []model.Alert
}

func (s *Session) Composer() *composer.Composer {
	return s.composer
}

func (s *Session) Screen() model.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

func (s *Session) setScreen(screen model.Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen = screen
}

// NavigateHome leaves the form. The upload indicator stays visible there.
func (s *Session) NavigateHome() {
	s.setScreen(model.ScreenHome)
}

func (s *Session) notify(a model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

// DrainAlerts returns queued alerts and forgets them.
func (s *Session) DrainAlerts() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.alerts
	s.alerts = nil
	if out == nil {
		out = []model.Alert{}
	}
	return out
}

// Remaining is the advisory character budget left on the limited fields.
type Remaining struct {
	DishName    int   `json:"dishName"`
	Description int   `json:"description"`
	Steps       []int `json:"steps"`
}

// SessionView is everything a device needs to render the current screen.
type SessionView struct {
	ID                  string                 `json:"id"`
	Screen              model.Screen           `json:"screen"`
	Draft               model.RecipeDraft      `json:"draft"`
	Locks               composer.Locks         `json:"locks"`
	Suggestions         []autocomplete.RowView `json:"suggestions"`
	ChoosingFrames      bool                   `json:"choosingFrames"`
	Frames              frames.Snapshot        `json:"frames"`
	TagsEditable        bool                   `json:"tagsEditable"`
	DietaryTagsEditable bool                   `json:"dietaryTagsEditable"`
	Remaining           Remaining              `json:"remaining"`
	Uploading           bool                   `json:"uploading"`
	Alerts              []model.Alert          `json:"alerts"`
}

// StudioService keeps the open sessions and moves them between screens.
type StudioService struct {
	suggestions client.SuggestionSource
	tools       MediaTools
	capability  config.CapabilityConfig
	media       config.MediaConfig
	debounce    time.Duration
	minQuery    int
	log         *slog.Logger
	metrics     *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStudioService(suggestions client.SuggestionSource, tools MediaTools, cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *StudioService {
	s := &StudioService{
		suggestions: suggestions,
		tools:       tools,
		capability:  cfg.Capability,
		media:       cfg.Media,
		debounce:    autocomplete.DefaultDebounce,
		minQuery:    autocomplete.DefaultMinQuery,
		log:         logger.OrDefault(log),
		metrics:     m,
		sessions:    make(map[string]*Session),
	}
	if cfg.Nutrition.DebounceMs > 0 {
		s.debounce = time.Duration(cfg.Nutrition.DebounceMs) * time.Millisecond
	}
	if cfg.Nutrition.MinQuery > 0 {
		s.minQuery = cfg.Nutrition.MinQuery
	}
	return s
}

// Create opens a session on the capture screen.
func (s *StudioService) Create(userID string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
		cancel:    cancel,
		screen:    model.ScreenCapture,
	}
	log := s.log.With("session_id", sess.ID, "user_id", userID)

	ac := autocomplete.New(s.suggestions,
		autocomplete.WithDebounce(s.debounce),
		autocomplete.WithMinQuery(s.minQuery),
		autocomplete.WithContext(ctx),
		autocomplete.WithLogger(log),
		autocomplete.WithMetrics(s.metrics),
	)
	timeline := frames.New(s.tools, s.tools,
		frames.WithGeometry(frames.GeometryFromConfig(s.media)),
		frames.WithCacheDir(s.media.CacheDir),
		frames.WithNotifier(sess.notify),
		frames.WithLogger(log),
		frames.WithMetrics(s.metrics),
	)
	sess.composer = composer.New(ac, timeline,
		composer.WithNotifier(sess.notify),
		composer.WithLogger(log),
		composer.WithMetrics(s.metrics),
	)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	log.Info("session opened")
	return sess
}

// Get returns the user's session. Sessions of other users are not found.
func (s *StudioService) Get(id, userID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.UserID != userID {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	return sess, nil
}

// Delete closes the session and stops its background lookups.
func (s *StudioService) Delete(id, userID string) error {
	sess, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	sess.cancel()
	sess.composer.Close()
	s.metrics.SetActiveSessions(n)
	s.log.Info("session closed", "session_id", id)
	return nil
}

// Count is the number of open sessions.
func (s *StudioService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// View renders the session and drains its alerts.
func (s *StudioService) View(sess *Session) SessionView {
	c := sess.composer
	d := c.Draft()
	rem := Remaining{
		DishName:    c.Remaining(composer.FieldDishName, 0),
		Description: c.Remaining(composer.FieldDescription, 0),
		Steps:       make([]int, len(d.Steps)),
	}
	for i := range d.Steps {
		rem.Steps[i] = c.Remaining(composer.FieldStep, i)
	}

	return SessionView{
		ID:                  sess.ID,
		Screen:              sess.Screen(),
		Draft:               d,
		Locks:               c.Locks(),
		Suggestions:         c.Suggestions(),
		ChoosingFrames:      c.ChoosingFrames(),
		Frames:              c.Frames(),
		TagsEditable:        c.TagsEditable(),
		DietaryTagsEditable: c.DietaryTagsEditable(),
		Remaining:           rem,
		Uploading:           c.Uploading(),
		Alerts:              sess.DrainAlerts(),
	}
}

// Capture applies a recording the device made. A cancelled recording sends
// the session home; a successful one moves it to the editor.
func (s *StudioService) Capture(ctx context.Context, sess *Session, platform model.Platform, result *model.CameraResult) (*model.MediaReference, error) {
	ctrl := capture.New(client.ReportedCamera{Result: result},
		capture.WithCredentials(s.capability.License, s.capability.UserID),
		capture.WithTempDir(s.media.TempDir),
		capture.WithLogger(s.log.With("session_id", sess.ID)),
	)

	ref, err := ctrl.Capture(ctx, platform)
	if err != nil {
		sess.setScreen(model.ScreenHome)
		return nil, err
	}

	sess.mu.Lock()
	sess.recorded = ref
	sess.screen = model.ScreenEdit
	sess.mu.Unlock()
	return ref, nil
}

// Edit applies the editor's outcome to the recorded video. An exported
// artifact seeds the composer; anything else sends the session home.
func (s *StudioService) Edit(ctx context.Context, sess *Session, result *model.EditorResult, editorErr string) (*model.MediaReference, error) {
	sess.mu.Lock()
	recorded := sess.recorded
	sess.mu.Unlock()

	var reportErr error
	if editorErr != "" {
		reportErr = errors.New(editorErr)
	}
	ctrl := edit.New(client.ReportedEditor{Result: result, Err: reportErr},
		s.capability.License, s.capability.UserID, s.log.With("session_id", sess.ID))

	ref, err := ctrl.Edit(ctx, recorded)
	if err != nil {
		sess.setScreen(model.ScreenHome)
		return nil, err
	}

	sess.composer.SetVideo(ctx, ref)
	sess.setScreen(model.ScreenCompose)
	return ref, nil
}

// EnterFrames opens cover selection for the session's video.
func (s *StudioService) EnterFrames(sess *Session) error {
	if err := sess.composer.EnterFrames(); err != nil {
		return err
	}
	sess.setScreen(model.ScreenFrames)
	return nil
}

// BeginFrames starts the scrub strip. A zero duration is measured from the
// video itself.
func (s *StudioService) BeginFrames(ctx context.Context, sess *Session, durationSeconds float64) ([]model.Frame, error) {
	if durationSeconds <= 0 {
		video := sess.composer.Draft().Video
		if video.Empty() {
			return nil, model.ErrNoVideo
		}
		d, err := s.tools.Duration(ctx, video.Path())
		if err != nil {
			return nil, fmt.Errorf("failed to probe video duration: %w", err)
		}
		durationSeconds = d
	}
	return sess.composer.BeginFrames(ctx, durationSeconds)
}

// FinishFrames keeps the frame under the selection line and returns to the form.
func (s *StudioService) FinishFrames(sess *Session) *model.MediaReference {
	thumb := sess.composer.FinishFrames()
	sess.setScreen(model.ScreenCompose)
	return thumb
}

// BackFrames returns to the form without choosing a frame.
func (s *StudioService) BackFrames(sess *Session) *model.MediaReference {
	thumb := sess.composer.BackFrames()
	sess.setScreen(model.ScreenCompose)
	return thumb
}

// CustomThumbnail uses a picked still as the cover and returns to the form.
// A picker failure is reported to the user.
func (s *StudioService) CustomThumbnail(sess *Session, assets []model.ImageAsset, pickErr string) error {
	if pickErr != "" {
		s.log.Warn("thumbnail picker failed", "session_id", sess.ID, "error", pickErr)
		sess.notify(model.AlertThumbnailPick)
		return fmt.Errorf("%w: %s", model.ErrCapabilityFailure, pickErr)
	}
	if err := sess.composer.CustomThumbnail(assets); err != nil {
		return err
	}
	sess.setScreen(model.ScreenCompose)
	return nil
}
