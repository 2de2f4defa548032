package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/model"
)

// CloudinaryClient uploads assets with backend-issued signatures.
type CloudinaryClient struct {
	httpClient *http.Client
	baseURL    string
	cloudName  string
	apiKey     string
	issuer     SignatureIssuer
}

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// NewCloudinaryClient creates a new Cloudinary client. issuer signs every
// destination.
func NewCloudinaryClient(cfg *config.CloudinaryConfig, issuer SignatureIssuer) *CloudinaryClient {
	return &CloudinaryClient{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		issuer:     issuer,
	}
}

// Destination requests a signature for folder.
func (c *CloudinaryClient) Destination(ctx context.Context, folder model.Folder, name string) (*model.UploadDestination, error) {
	sig, err := c.issuer.Signature(ctx, folder)
	if err != nil {
		return nil, err
	}
	return &model.UploadDestination{Folder: folder, Signature: sig}, nil
}

// Upload streams the asset as a signed multipart form and returns secure_url.
func (c *CloudinaryClient) Upload(ctx context.Context, dest *model.UploadDestination, asset Asset, progress ProgressFunc) (string, error) {
	if dest == nil || dest.Signature == nil {
		return "", fmt.Errorf("cloudinary destination has no signature")
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

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeForm(mw, dest, asset, newProgressReader(f, info.Size(), progress)))
	}()

	endpoint := fmt.Sprintf("%s/%s/%s/upload", c.baseURL, c.cloudName, resourceType(dest.Folder))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("cloudinary error (status %d): %s", resp.StatusCode, string(body))
	}

	var out cloudinaryUploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary response has no secure_url")
	}
	return out.SecureURL, nil
}

func (c *CloudinaryClient) writeForm(mw *multipart.Writer, dest *model.UploadDestination, asset Asset, file io.Reader) error {
	part, err := mw.CreateFormFile("file", asset.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}

	fields := [][2]string{
		{"api_key", c.apiKey},
		{"timestamp", dest.Signature.Timestamp.String()},
		{"signature", dest.Signature.Signature},
		{"upload_preset", dest.Signature.UploadPreset},
	}
	if dest.Folder != "" {
		fields = append(fields, [2]string{"folder", string(dest.Folder)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

func resourceType(folder model.Folder) string {
	if folder == model.FolderVideos {
		return "video"
	}
	return "image"
}

// IsConfigured returns true if the client has valid configuration
func (c *CloudinaryClient) IsConfigured() bool {
	return c.cloudName != "" && c.apiKey != "" && c.issuer != nil
}
