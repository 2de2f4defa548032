// Package capture records a video through the camera capability and
// normalizes where the file lives so later stages can read it.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

const (
	privatePrefix = "file:///private"
	videoExt      = ".mp4"
)

// Option configures the controller.
type Option func(*Controller)

// WithCredentials sets the license and user id sent to the camera.
func WithCredentials(license, userID string) Option {
	return func(c *Controller) {
		c.license = license
		c.userID = userID
	}
}

// WithTempDir sets where recordings without an extension are moved to.
func WithTempDir(dir string) Option {
	return func(c *Controller) {
		c.tempDir = dir
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithClock replaces time.Now when naming renamed recordings.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller runs the camera once per Capture call.
type Controller struct {
	camera  client.Camera
	license string
	userID  string
	tempDir string
	log     *slog.Logger
	now     func() time.Time
}

func New(camera client.Camera, opts ...Option) *Controller {
	c := &Controller{
		camera:  camera,
		tempDir: os.TempDir(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDefault(c.log)
	return c
}

// Capture opens the camera in video mode and returns the normalized
// recording. A missing result, or one without a URI, is
// model.ErrCapabilityCancelled. An error from the camera itself is also
// reported as cancelled after being logged.
func (c *Controller) Capture(ctx context.Context, platform model.Platform) (*model.MediaReference, error) {
	c.log.Info("opening camera", "video", true)

	result, err := c.camera.Record(ctx, model.CameraRequest{
		License: c.license,
		UserID:  c.userID,
		Video:   true,
	})
	if err != nil {
		c.log.Warn("camera failed", "error", err)
		return nil, fmt.Errorf("%w: %v", model.ErrCapabilityCancelled, err)
	}

	captured := result.CapturedURI()
	if captured == "" {
		c.log.Info("camera returned no recording")
		return nil, model.ErrCapabilityCancelled
	}
	c.log.Debug("camera result", "uri", captured)

	final := c.normalize(captured, platform)
	c.logSize(final)

	c.log.Info("capture complete", "uri", final)
	return model.NewVideo(final), nil
}

// normalize strips the private storage prefix and, on iOS, gives the file an
// .mp4 extension. If the move fails the original captured URI is kept.
func (c *Controller) normalize(captured string, platform model.Platform) string {
	final := strings.Replace(captured, privatePrefix, "file://", 1)
	if platform != model.PlatformIOS || strings.HasSuffix(final, videoExt) {
		return final
	}

	target := filepath.Join(c.tempDir, fmt.Sprintf("recorded_%d%s", c.now().UnixMilli(), videoExt))
	c.log.Info("renaming recording", "from", final, "to", target)

	if err := moveFile(model.StripFileScheme(final), target); err != nil {
		c.log.Warn("failed to rename recording", "error", err)
		return captured
	}
	return model.FileURI(target)
}

func (c *Controller) logSize(uri string) {
	info, err := os.Stat(model.StripFileScheme(uri))
	if err != nil {
		c.log.Warn("could not stat recording", "uri", uri, "error", err)
		return
	}
	c.log.Info("recording size", "bytes", info.Size())
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
