package client

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/freshrecipes/studio/internal/model"
)

// FilePicker picks a local image file, reading its dimensions from the file
// header.
type FilePicker struct {
	path string
}

func NewFilePicker(path string) *FilePicker {
	return &FilePicker{path: path}
}

// Pick returns the configured file as the single asset. An empty path means
// nothing was picked.
func (p *FilePicker) Pick(ctx context.Context, req model.PickerRequest) (*model.PickerResult, error) {
	if p.path == "" {
		return &model.PickerResult{}, nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image size: %w", err)
	}

	return &model.PickerResult{Assets: []model.ImageAsset{{
		URI:    model.FileURI(p.path),
		Width:  cfg.Width,
		Height: cfg.Height,
	}}}, nil
}
