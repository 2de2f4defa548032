package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/frames"
	"github.com/freshrecipes/studio/internal/model"
)

// framesResult is what the frames command prints.
type framesResult struct {
	Video     string                `json:"video" yaml:"video"`
	Duration  float64               `json:"duration" yaml:"duration"`
	Frames    int                   `json:"frames" yaml:"frames"`
	Index     int                   `json:"index" yaml:"index"`
	Seconds   float64               `json:"seconds" yaml:"seconds"`
	Failed    bool                  `json:"failed" yaml:"failed"`
	Error     string                `json:"error,omitempty" yaml:"error,omitempty"`
	Slots     []model.Frame         `json:"slots" yaml:"slots"`
	Thumbnail *model.MediaReference `json:"thumbnail" yaml:"thumbnail"`
}

func newFramesCmd(app *App) *cobra.Command {
	var offset, duration float64

	cmd := &cobra.Command{
		Use:   "frames <video>",
		Short: "Extract the cover strip for a video and pick the frame at an offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFrames(cmd, app, client.NewFFmpeg(&app.Config.Media), args[0], offset, duration)
		},
	}

	cmd.Flags().Float64Var(&offset, "offset", 0, "Horizontal strip offset in pixels")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Video duration in seconds (default: probe with ffprobe)")
	return cmd
}

type mediaTools interface {
	client.FrameExtractor
	client.Thumbnailer
	client.DurationProber
}

func runFrames(cmd *cobra.Command, app *App, tools mediaTools, path string, offset, duration float64) error {
	ctx := cmd.Context()

	abs, err := filepath.Abs(path)
	if err != nil {
		return writeErr(cmd, err)
	}

	tl := frames.New(tools, tools,
		frames.WithGeometry(frames.GeometryFromConfig(app.Config.Media)),
		frames.WithCacheDir(app.Config.Media.CacheDir),
		frames.WithLogger(app.Log),
		frames.WithNotifier(func(a model.Alert) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", a.Title, a.Message)
		}),
	)

	video := model.NewVideo(model.FileURI(abs))
	cover := tl.SetVideo(ctx, video)

	if duration <= 0 {
		duration, err = tools.Duration(ctx, abs)
		if err != nil {
			return writeErr(cmd, fmt.Errorf("failed to probe duration: %w", err))
		}
	}
	if _, err := tl.Begin(ctx, duration); err != nil {
		return writeErr(cmd, err)
	}

	select {
	case <-tl.Done():
	case <-ctx.Done():
		return writeErr(cmd, ctx.Err())
	}

	index, seconds := tl.Scrub(offset)
	snap := tl.Snapshot()
	res := framesResult{
		Video:     video.URI,
		Duration:  duration,
		Frames:    len(snap.Frames),
		Index:     index,
		Seconds:   seconds,
		Failed:    snap.Failed,
		Slots:     snap.Frames,
		Thumbnail: tl.Finish(cover),
	}
	if err := tl.Err(); err != nil {
		res.Error = err.Error()
	}
	return writeOut(cmd, app, res)
}
