package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/model"
)

// R2Client hosts media on Cloudflare R2. Destinations are presigned PUT URLs,
// so the transfer itself is a plain HTTP PUT that reports byte progress.
type R2Client struct {
	presigner  *s3.PresignClient
	httpClient *http.Client
	bucketName string
	publicURL  string
	expiry     time.Duration
}

// NewR2Client creates a new R2 storage client
func NewR2Client(cfg *config.R2Config) (*R2Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	expiry := time.Duration(cfg.PresignExpiry) * time.Minute
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &R2Client{
		presigner:  s3.NewPresignClient(s3Client),
		httpClient: &http.Client{},
		bucketName: cfg.BucketName,
		publicURL:  cfg.PublicURL,
		expiry:     expiry,
	}, nil
}

// Destination presigns a PUT for a fresh key under folder.
func (c *R2Client) Destination(ctx context.Context, folder model.Folder, name string) (*model.UploadDestination, error) {
	key := path.Join(string(folder), uuid.New().String()+path.Ext(name))

	presigned, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &model.UploadDestination{
		Folder:    folder,
		URL:       presigned.URL,
		PublicURL: c.GetPublicURL(key),
	}, nil
}

// Upload PUTs the asset to the presigned URL.
func (c *R2Client) Upload(ctx context.Context, dest *model.UploadDestination, asset Asset, progress ProgressFunc) (string, error) {
	return putFile(ctx, c.httpClient, dest, asset, progress)
}

// putFile sends a file body to a presigned URL and returns the destination's
// public URL.
func putFile(ctx context.Context, hc *http.Client, dest *model.UploadDestination, asset Asset, progress ProgressFunc) (string, error) {
	if dest == nil || dest.URL == "" {
		return "", fmt.Errorf("destination has no upload URL")
	}

	f, err := os.Open(asset.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", asset.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", asset.Path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest.URL, newProgressReader(f, info.Size(), progress))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", asset.ContentType)

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("R2 upload failed (status %d)", resp.StatusCode)
	}
	return dest.PublicURL, nil
}

// GetPublicURL returns the public CDN URL for a key
func (c *R2Client) GetPublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", c.bucketName, key)
}

// IsConfigured returns true if the client has valid configuration
func (c *R2Client) IsConfigured() bool {
	return c.presigner != nil && c.bucketName != ""
}
