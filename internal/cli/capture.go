package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freshrecipes/studio/internal/capture"
	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/edit"
	"github.com/freshrecipes/studio/internal/model"
)

func newCaptureCmd(app *App) *cobra.Command {
	var platform string
	var skipEdit bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record a video with the camera helper and open it in the editor",
		Long: `Runs the configured camera command (capability.camera_command). When it
returns a recording, the editor command (capability.editor_command) is opened
on it unless --skip-edit is set. A cancelled camera or editor prints
{"cancelled": true}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Platform(platform)
			if p != model.PlatformIOS && p != model.PlatformAndroid {
				return writeErr(cmd, fmt.Errorf("unknown platform %q (ios|android)", platform))
			}

			cfg := app.Config.Capability
			ctrl := capture.New(client.NewExecCamera(cfg.CameraCommand),
				capture.WithCredentials(cfg.License, cfg.UserID),
				capture.WithTempDir(app.Config.Media.TempDir),
				capture.WithLogger(app.Log),
			)

			recorded, err := ctrl.Capture(cmd.Context(), p)
			if errors.Is(err, model.ErrCapabilityCancelled) {
				return writeOut(cmd, app, map[string]any{"cancelled": true})
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			out := map[string]any{"recorded": recorded}
			if skipEdit {
				return writeOut(cmd, app, out)
			}

			editor := edit.New(client.NewExecEditor(cfg.EditorCommand), cfg.License, cfg.UserID, app.Log)
			video, err := editor.Edit(cmd.Context(), recorded)
			if errors.Is(err, model.ErrCapabilityCancelled) {
				out["cancelled"] = true
				return writeOut(cmd, app, out)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			out["video"] = video
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&platform, "platform", string(model.PlatformAndroid), "Device platform the helper emulates (ios|android)")
	cmd.Flags().BoolVar(&skipEdit, "skip-edit", false, "Stop after recording")
	return cmd
}
