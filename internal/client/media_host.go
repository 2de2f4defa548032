package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/model"
)

// ProgressFunc receives cumulative bytes sent and the total for one transfer.
type ProgressFunc func(sent, total int64)

// DestinationIssuer prepares where one asset will be uploaded.
type DestinationIssuer interface {
	Destination(ctx context.Context, folder model.Folder, name string) (*model.UploadDestination, error)
}

// MediaHost transfers a local file to a destination and returns its public URL.
type MediaHost interface {
	Upload(ctx context.Context, dest *model.UploadDestination, asset Asset, progress ProgressFunc) (string, error)
}

// Asset is one local file to upload.
type Asset struct {
	Path        string
	Name        string
	ContentType string
}

// NewAsset builds an asset for the file at path, guessing the content type
// from name's extension.
func NewAsset(path, name string) Asset {
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Asset{Path: path, Name: name, ContentType: ct}
}

// progressReader reports bytes as they are read through it.
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}

// Storage is a media host that also issues its own destinations.
type Storage interface {
	DestinationIssuer
	MediaHost
	IsConfigured() bool
}

// NewStorage returns the provider named by cfg.Storage.Provider. Cloudinary
// destinations are signed by issuer; R2 presigns its own.
func NewStorage(cfg *config.Config, issuer SignatureIssuer) (Storage, error) {
	switch strings.ToLower(cfg.Storage.Provider) {
	case "r2":
		r2, err := NewR2Client(&cfg.R2)
		if err != nil {
			return nil, err
		}
		return r2, nil
	case "", "cloudinary":
		return NewCloudinaryClient(&cfg.Cloudinary, issuer), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
