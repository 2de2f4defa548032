package client

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/model"
)

// FrameExtractor renders a batch of stills from a video.
type FrameExtractor interface {
	Extract(ctx context.Context, req model.ExtractRequest) error
}

// Thumbnailer renders one still at a timestamp.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, req model.ThumbnailRequest) (*model.ThumbnailResult, error)
}

// DurationProber reports a video's length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFmpeg runs the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	outDir      string
}

func NewFFmpeg(cfg *config.MediaConfig) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		outDir:      cfg.CacheDir,
	}
}

// Extract writes FrameCount frames sampled at FrameRateHz into OutputPattern.
// ffmpeg numbers the files from 1.
func (f *FFmpeg) Extract(ctx context.Context, req model.ExtractRequest) error {
	rate := req.FrameRateHz
	if rate <= 0 {
		rate = 1
	}
	args := []string{
		"-y", "-loglevel", "error",
		"-i", model.StripFileScheme(req.SourcePath),
		"-vf", "fps=" + strconv.FormatFloat(rate, 'f', -1, 64),
		"-frames:v", strconv.Itoa(req.FrameCount),
		req.OutputPattern,
	}
	if _, err := run(ctx, f.ffmpegPath, args); err != nil {
		return fmt.Errorf("failed to extract frames: %w", err)
	}
	return nil
}

// Thumbnail writes a single JPEG at TimestampSeconds into the cache directory.
func (f *FFmpeg) Thumbnail(ctx context.Context, req model.ThumbnailRequest) (*model.ThumbnailResult, error) {
	out := filepath.Join(f.outDir, "thumb_"+uuid.New().String()+".jpg")
	args := []string{
		"-y", "-loglevel", "error",
		"-ss", strconv.FormatFloat(req.TimestampSeconds, 'f', 3, 64),
		"-i", model.StripFileScheme(req.VideoURI),
		"-frames:v", "1",
		out,
	}
	if _, err := run(ctx, f.ffmpegPath, args); err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return &model.ThumbnailResult{Path: model.FileURI(out)}, nil
}

// Duration asks ffprobe for the container duration.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		model.StripFileScheme(path),
	}
	out, err := run(ctx, f.ffprobePath, args)
	if err != nil {
		return 0, fmt.Errorf("failed to probe duration: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// IsConfigured returns true if both binaries resolve on PATH.
func (f *FFmpeg) IsConfigured() bool {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(f.ffprobePath)
	return err == nil
}

func run(ctx context.Context, bin string, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(bin), err, msg)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(bin), err)
	}
	return stdout.Bytes(), nil
}
