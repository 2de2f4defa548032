package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/internal/upload"
)

func newSubmitCmd(app *App) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "submit <draft.yaml>",
		Short: "Upload a finished recipe draft",
		Long: `Reads a draft in YAML, checks that every required field is filled, uploads
the video, thumbnail and dish image to the configured media host and posts the
recipe to the backend. Media paths are resolved relative to the draft file.
Progress is reported on stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := client.NewBackendClient(&app.Config.Backend)
			storage, err := client.NewStorage(app.Config, backend)
			if err != nil {
				return writeErr(cmd, err)
			}
			return runSubmit(cmd, app, storage, storage, backend, args[0], userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", envOr("STUDIO_USER", ""), "User id recorded on the recipe")
	return cmd
}

func runSubmit(cmd *cobra.Command, app *App, issuer client.DestinationIssuer, host client.MediaHost, poster client.RecipePoster, path, userID string) error {
	if userID == "" {
		return writeErr(cmd, fmt.Errorf("%w: --user is required", model.ErrNotAuthenticated))
	}

	draft, err := loadDraft(path)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := draft.Validate(); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			err = fmt.Errorf("%w (missing: %s)", err, ve.Detail())
		}
		return writeErr(cmd, err)
	}

	stderr := cmd.ErrOrStderr()
	status := upload.NewStatusStore()
	status.Subscribe(func(st model.UploadStatus) {
		if st.Uploading {
			fmt.Fprintf(stderr, "uploading %3d%%\n", st.Progress)
		}
	})

	job := model.UploadJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		State:     model.UploadUploading,
		CreatedAt: time.Now(),
	}

	pipeline := upload.NewPipeline(issuer, host, poster, status, app.Log, nil)
	nav := upload.NavigatorFunc(func() {
		app.Log.Debug("upload running in background", "job_id", job.ID)
	})
	if err := pipeline.Submit(cmd.Context(), job, draft, nav); err != nil {
		return writeErr(cmd, err)
	}

	job.State = model.UploadDone
	job.Progress = 100
	return writeOut(cmd, app, job)
}

// loadDraft reads a YAML draft. Relative media paths are taken relative to
// the draft file.
func loadDraft(path string) (model.RecipeDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RecipeDraft{}, fmt.Errorf("failed to read draft: %w", err)
	}

	draft := model.NewDraft()
	if err := yaml.Unmarshal(data, &draft); err != nil {
		return model.RecipeDraft{}, fmt.Errorf("failed to parse draft: %w", err)
	}

	dir := filepath.Dir(path)
	for _, ref := range []*model.MediaReference{draft.Video, draft.Thumbnail, draft.DishImage} {
		if ref.Empty() || (strings.Contains(ref.URI, "://") && !strings.HasPrefix(ref.URI, "file://")) {
			continue
		}
		p := model.StripFileScheme(ref.URI)
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		ref.URI = model.FileURI(p)
	}
	return draft, nil
}
