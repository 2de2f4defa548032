// Package upload sends a finished recipe draft to the media host and the
// recipe backend, one step at a time, while publishing its progress.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/metrics"
	"github.com/freshrecipes/studio/internal/model"
)

// Navigator moves the user off the form once the upload has started.
type Navigator interface {
	NavigateHome()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) NavigateHome() { f() }

// Pipeline runs submissions. Steps of one submission never overlap.
type Pipeline struct {
	issuer  client.DestinationIssuer
	host    client.MediaHost
	backend client.RecipePoster
	status  *StatusStore
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewPipeline(issuer client.DestinationIssuer, host client.MediaHost, backend client.RecipePoster, status *StatusStore, log *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		issuer:  issuer,
		host:    host,
		backend: backend,
		status:  status,
		log:     logger.OrDefault(log),
		metrics: m,
	}
}

type plannedAsset struct {
	ref    *model.MediaReference
	folder model.Folder
	name   string
	size   int64
	url    *string
}

// Submit uploads the draft's video, thumbnail and dish image in that order,
// then posts the recipe record. The first failure stops the sequence and is
// returned wrapped in model.ErrNetworkFailure. The status slot is cleared
// whatever the outcome. The draft itself is never modified.
func (p *Pipeline) Submit(ctx context.Context, job model.UploadJob, draft model.RecipeDraft, nav Navigator) error {
	if job.UserID == "" {
		return model.ErrNotAuthenticated
	}
	if err := p.status.Start(job.UserID, job.ID, IndicatorThumbnail(draft)); err != nil {
		return err
	}

	outcome := model.UploadFailed
	defer func() {
		p.status.Clear(job.UserID, outcome)
		p.metrics.IncUpload(string(outcome))
	}()

	if nav != nil {
		nav.NavigateHome()
	}

	log := p.log.With("job_id", job.ID, "user_id", job.UserID)
	log.Info("upload started")

	if err := p.run(ctx, log, job, draft); err != nil {
		log.Error("upload failed", "error", err)
		return fmt.Errorf("%w: %v", model.ErrNetworkFailure, err)
	}

	outcome = model.UploadDone
	log.Info("upload complete")
	return nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, job model.UploadJob, draft model.RecipeDraft) error {
	var media model.HostedMedia
	assets := []plannedAsset{
		{ref: draft.Video, folder: model.FolderVideos, name: "videoUpload.mp4", url: &media.VideoURL},
		{ref: draft.Thumbnail, folder: model.FolderVideoThumbnails, name: "thumbnail.jpg", url: &media.ThumbnailURL},
		{ref: draft.DishImage, folder: model.FolderRecipeImage, name: "dishImage.jpg", url: &media.ImageURL},
	}

	var total int64
	planned := assets[:0]
	for _, a := range assets {
		if a.ref.Empty() {
			continue
		}
		info, err := os.Stat(a.ref.Path())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", a.folder, err)
		}
		a.size = info.Size()
		total += a.size
		planned = append(planned, a)
	}

	var done int64
	for _, a := range planned {
		dest, err := p.issuer.Destination(ctx, a.folder, a.name)
		if err != nil {
			return fmt.Errorf("failed to get %s destination: %w", a.folder, err)
		}

		base := done
		url, err := p.host.Upload(ctx, dest, client.NewAsset(a.ref.Path(), a.name), func(sent, _ int64) {
			p.status.Progress(job.UserID, percent(base+sent, total))
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", a.folder, err)
		}

		*a.url = url
		done += a.size
		p.metrics.AddUploadedBytes(a.size)
		p.status.Progress(job.UserID, percent(done, total))
		log.Info("asset uploaded", "folder", a.folder, "bytes", a.size)
	}

	rec, err := model.NewRecipeRecord(draft, media, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}
	if err := p.backend.PostRecipe(ctx, &rec); err != nil {
		return err
	}
	p.status.Progress(job.UserID, 100)
	return nil
}

// IndicatorThumbnail is the image shown next to the global progress
// indicator: the chosen thumbnail, else the dish image.
func IndicatorThumbnail(d model.RecipeDraft) string {
	if !d.Thumbnail.Empty() {
		return d.Thumbnail.URI
	}
	if !d.DishImage.Empty() {
		return d.DishImage.URI
	}
	return ""
}

func percent(n, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(n * 100 / total)
	if p > 100 {
		return 100
	}
	return p
}
