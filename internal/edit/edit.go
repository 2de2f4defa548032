// Package edit runs the video editor on a captured recording.
package edit

import (
	"context"
	"log/slog"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

// Controller opens the editor exactly once per Edit call.
type Controller struct {
	editor  client.Editor
	license string
	userID  string
	log     *slog.Logger
}

func New(editor client.Editor, license, userID string, log *slog.Logger) *Controller {
	return &Controller{
		editor:  editor,
		license: license,
		userID:  userID,
		log:     logger.OrDefault(log),
	}
}

// Edit returns the exported artifact as a new video reference. Closing the
// editor without exporting, and an editor error, both return
// model.ErrCapabilityCancelled; the caller goes home. There is no retry.
func (c *Controller) Edit(ctx context.Context, ref *model.MediaReference) (*model.MediaReference, error) {
	if ref.Empty() {
		return nil, model.ErrNoVideo
	}

	result, err := c.editor.Open(ctx, model.EditorRequest{
		License:   c.license,
		UserID:    c.userID,
		SourceURI: ref.URI,
		Preset:    model.EditorPresetVideo,
	})
	if err != nil {
		c.log.Warn("editor failed", "source", ref.URI, "error", err)
		return nil, model.ErrCapabilityCancelled
	}
	if result == nil || result.Artifact == "" {
		c.log.Info("editor closed without export", "source", ref.URI)
		return nil, model.ErrCapabilityCancelled
	}

	c.log.Info("editor exported", "artifact", result.Artifact)
	return model.NewVideo(result.Artifact), nil
}
