package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/model"
)

// SignatureIssuer hands out signed upload credentials for a media folder.
type SignatureIssuer interface {
	Signature(ctx context.Context, folder model.Folder) (*model.Signature, error)
}

// RecipePoster stores a finished recipe record.
type RecipePoster interface {
	PostRecipe(ctx context.Context, rec *model.RecipeRecord) error
}

// BackendClient talks to the recipe backend.
type BackendClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewBackendClient creates a new recipe backend client
func NewBackendClient(cfg *config.BackendConfig) *BackendClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BackendClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
	}
}

// Signature fetches upload credentials for folder.
func (c *BackendClient) Signature(ctx context.Context, folder model.Folder) (*model.Signature, error) {
	var sig model.Signature
	if err := c.get(ctx, "/api/cloudinarySignature?folder="+url.QueryEscape(string(folder)), &sig); err != nil {
		return nil, fmt.Errorf("failed to fetch signature: %w", err)
	}
	return &sig, nil
}

// PostRecipe sends the assembled recipe record.
func (c *BackendClient) PostRecipe(ctx context.Context, rec *model.RecipeRecord) error {
	if err := c.post(ctx, "/api/upload", rec, nil); err != nil {
		return fmt.Errorf("failed to post recipe: %w", err)
	}
	return nil
}

// post sends a POST request with JSON body
func (c *BackendClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *BackendClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response. A nil result
// only checks the status.
func (c *BackendClient) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *BackendClient) IsConfigured() bool {
	return c.baseURL != ""
}
