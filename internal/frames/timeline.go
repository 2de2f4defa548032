// Package frames builds the one-frame-per-second scrub strip used to pick a
// recipe video's cover image.
package frames

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/metrics"
	"github.com/freshrecipes/studio/internal/model"
)

// Geometry describes the strip: how many frames per second of video, how wide
// one tile is, and where in the visible window the selection line sits.
type Geometry struct {
	FrameRateHz    float64
	TileWidth      float64
	WindowWidth    float64
	CenterFraction float64
}

// DefaultGeometry is one frame per second on 40px tiles with the line in the
// middle of a one-tile window.
var DefaultGeometry = Geometry{FrameRateHz: 1, TileWidth: 40, WindowWidth: 40, CenterFraction: 0.5}

// GeometryFromConfig overlays the configured strip settings on
// DefaultGeometry. Zero values keep the default.
func GeometryFromConfig(cfg config.MediaConfig) Geometry {
	g := DefaultGeometry
	if cfg.FrameRateHz > 0 {
		g.FrameRateHz = cfg.FrameRateHz
	}
	if cfg.TileWidth > 0 {
		g.TileWidth = cfg.TileWidth
	}
	if cfg.WindowWidth > 0 {
		g.WindowWidth = cfg.WindowWidth
	}
	if cfg.CenterFraction > 0 {
		g.CenterFraction = cfg.CenterFraction
	}
	return g
}

// Player is a paused video preview that follows the scrub position.
type Player interface {
	Seek(seconds float64)
}

// Option configures the timeline.
type Option func(*Timeline)

func WithGeometry(g Geometry) Option {
	return func(t *Timeline) {
		if g.FrameRateHz > 0 && g.TileWidth > 0 {
			t.geo = g
		}
	}
}

// WithCacheDir sets where extracted frames are written.
func WithCacheDir(dir string) Option {
	return func(t *Timeline) {
		t.cacheDir = dir
	}
}

func WithPlayer(p Player) Option {
	return func(t *Timeline) {
		t.player = p
	}
}

// WithNotifier receives user-facing alerts, such as a failed extraction.
func WithNotifier(fn func(model.Alert)) Option {
	return func(t *Timeline) {
		t.notify = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Timeline) {
		t.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Timeline) {
		t.metrics = m
	}
}

// Timeline owns the frame slots for one video. Setting a new video discards
// the previous slots.
type Timeline struct {
	extractor   client.FrameExtractor
	thumbnailer client.Thumbnailer
	geo         Geometry
	cacheDir    string
	player      Player
	notify      func(model.Alert)
	log         *slog.Logger
	metrics     *metrics.Metrics

	mu           sync.Mutex
	video        *model.MediaReference
	slots        []model.Frame
	current      int
	defaultThumb *model.MediaReference
	generation   int
	extracting   bool
	failed       bool
	err          error
	done         chan struct{}
}

func New(extractor client.FrameExtractor, thumbnailer client.Thumbnailer, opts ...Option) *Timeline {
	t := &Timeline{
		extractor:   extractor,
		thumbnailer: thumbnailer,
		geo:         DefaultGeometry,
		done:        closedChan(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = logger.OrDefault(t.log)
	return t
}

// SetVideo points the timeline at a new video, drops any slots from the
// previous one, and renders the timestamp-zero default thumbnail. A failed
// thumbnail is logged and leaves no default.
func (t *Timeline) SetVideo(ctx context.Context, video *model.MediaReference) *model.MediaReference {
	t.mu.Lock()
	t.generation++
	t.video = video
	t.slots = nil
	t.current = 0
	t.defaultThumb = nil
	t.extracting = false
	t.failed = false
	t.err = nil
	t.done = closedChan()
	gen := t.generation
	t.mu.Unlock()

	if video.Empty() || t.thumbnailer == nil {
		return nil
	}

	res, err := t.thumbnailer.Thumbnail(ctx, model.ThumbnailRequest{VideoURI: video.URI, TimestampSeconds: 0})
	if err != nil || res == nil || res.Path == "" {
		t.log.Warn("failed to generate initial thumbnail", "video", video.URI, "error", err)
		return nil
	}

	thumb := model.NewImage(model.FileURI(res.Path))
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return nil
	}
	t.defaultThumb = thumb
	return thumb
}

// Begin allocates ceil(durationSeconds) loading slots and extracts all of them
// in one batch in the background. Done is closed when the batch finishes.
func (t *Timeline) Begin(ctx context.Context, durationSeconds float64) ([]model.Frame, error) {
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return nil, fmt.Errorf("invalid duration %v", durationSeconds)
	}

	t.mu.Lock()
	if t.video.Empty() {
		t.mu.Unlock()
		return nil, model.ErrNoVideo
	}

	n := SlotCount(durationSeconds)
	t.generation++
	gen := t.generation
	t.slots = make([]model.Frame, n)
	for i := range t.slots {
		t.slots[i] = model.LoadingFrame()
	}
	t.current = 0
	t.extracting = true
	t.failed = false
	t.err = nil
	done := make(chan struct{})
	t.done = done

	req := model.ExtractRequest{
		SourcePath:    t.video.Path(),
		FrameCount:    n,
		OutputPattern: t.outputPattern(t.video),
		FrameRateHz:   t.geo.FrameRateHz,
	}
	out := cloneFrames(t.slots)
	t.mu.Unlock()

	go t.extract(context.WithoutCancel(ctx), gen, req, done)
	return out, nil
}

func (t *Timeline) extract(ctx context.Context, gen int, req model.ExtractRequest, done chan struct{}) {
	defer close(done)

	err := t.extractor.Extract(ctx, req)

	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return
	}
	t.extracting = false
	if err != nil {
		t.failed = true
		t.err = fmt.Errorf("%w: %v", model.ErrExtractionFailure, err)
		t.mu.Unlock()

		t.log.Error("frame extraction failed", "source", req.SourcePath, "frames", req.FrameCount, "error", err)
		t.metrics.IncFrameExtraction("error")
		if t.notify != nil {
			t.notify(model.AlertExtractionFailed)
		}
		return
	}
	for i := range t.slots {
		t.slots[i] = model.ReadyFrame(model.FileURI(FramePath(req.OutputPattern, i)))
	}
	t.mu.Unlock()

	t.log.Info("frames extracted", "source", req.SourcePath, "frames", req.FrameCount)
	t.metrics.IncFrameExtraction("ok")
}

// Done is closed once the current extraction has finished, successfully or not.
func (t *Timeline) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Err returns the last extraction failure, wrapping model.ErrExtractionFailure,
// or nil.
func (t *Timeline) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Frames returns a copy of the slots.
func (t *Timeline) Frames() []model.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneFrames(t.slots)
}

// Scrub maps a horizontal strip offset to the frame under the selection line
// and seeks the player there. It returns the clamped index and the playback
// time in seconds.
func (t *Timeline) Scrub(offsetPixels float64) (int, float64) {
	t.mu.Lock()
	seconds := PlaybackTime(offsetPixels, t.geo)
	if len(t.slots) > 0 {
		t.current = ClampIndex(int(math.Floor(seconds)), len(t.slots))
	}
	index := t.current
	player := t.player
	t.mu.Unlock()

	if player != nil {
		player.Seek(seconds)
	}
	return index, seconds
}

// Finish returns the cover to use: the ready frame at the scrubbed index, else
// the default thumbnail, else prior unchanged.
func (t *Timeline) Finish(prior *model.MediaReference) *model.MediaReference {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.currentFrame(); ok {
		return model.NewImage(f.URI)
	}
	if t.defaultThumb != nil {
		return t.defaultThumb
	}
	return prior
}

// Back leaves frame selection without choosing. The default thumbnail is
// restored only when no frame is available.
func (t *Timeline) Back(prior *model.MediaReference) *model.MediaReference {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.currentFrame(); !ok && t.defaultThumb != nil {
		return t.defaultThumb
	}
	return prior
}

// DefaultThumbnail returns the timestamp-zero thumbnail, if one was rendered.
func (t *Timeline) DefaultThumbnail() *model.MediaReference {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.defaultThumb
}

// Snapshot describes the strip for display.
type Snapshot struct {
	Frames     []model.Frame `json:"frames"`
	Current    int           `json:"current"`
	Extracting bool          `json:"extracting"`
	Failed     bool          `json:"failed"`
}

func (t *Timeline) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Frames:     cloneFrames(t.slots),
		Current:    t.current,
		Extracting: t.extracting,
		Failed:     t.failed,
	}
}

// Reset forgets the video and all slots.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.video = nil
	t.slots = nil
	t.current = 0
	t.defaultThumb = nil
	t.extracting = false
	t.failed = false
	t.err = nil
	t.done = closedChan()
}

func (t *Timeline) currentFrame() (model.Frame, bool) {
	if t.current < 0 || t.current >= len(t.slots) {
		return model.Frame{}, false
	}
	f := t.slots[t.current]
	return f, f.Ready()
}

func (t *Timeline) outputPattern(video *model.MediaReference) string {
	dir := t.cacheDir
	if dir == "" {
		dir = filepath.Dir(video.Path())
	}
	return filepath.Join(dir, baseName(video.Path())+"_%04d.png")
}

// SlotCount is the number of one-second slots for a duration.
func SlotCount(durationSeconds float64) int {
	return int(math.Ceil(durationSeconds))
}

// PlaybackTime converts a strip offset to seconds of video.
func PlaybackTime(offsetPixels float64, g Geometry) float64 {
	return (offsetPixels + g.WindowWidth*g.CenterFraction) / (g.FrameRateHz * g.TileWidth)
}

// ClampIndex limits i to [0, n-1].
func ClampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// FramePath fills the 4-digit placeholder with the 1-based number of slot i.
func FramePath(pattern string, i int) string {
	return strings.Replace(pattern, "%04d", fmt.Sprintf("%04d", i+1), 1)
}

func baseName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

func cloneFrames(in []model.Frame) []model.Frame {
	if in == nil {
		return []model.Frame{}
	}
	out := make([]model.Frame, len(in))
	copy(out, in)
	return out
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
