package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/model"
)

// SuggestionSource looks up ingredient names matching a partial query.
type SuggestionSource interface {
	Search(ctx context.Context, query string) ([]model.Suggestion, error)
}

// NutritionClient queries the USDA FoodData Central search endpoint.
type NutritionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
}

type foodSearchResponse struct {
	Foods []model.Suggestion `json:"foods"`
}

// NewNutritionClient creates a new FoodData Central client
func NewNutritionClient(cfg *config.NutritionConfig) *NutritionClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &NutritionClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		pageSize:   pageSize,
	}
}

// Search returns the foods whose description matches query, in the order the
// database ranks them.
func (c *NutritionClient) Search(ctx context.Context, query string) ([]model.Suggestion, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(c.pageSize))

	var result foodSearchResponse
	if err := c.get(ctx, "/foods/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	if result.Foods == nil {
		return []model.Suggestion{}, nil
	}
	return result.Foods, nil
}

// get sends a GET request and parses JSON response
func (c *NutritionClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nutrition API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *NutritionClient) IsConfigured() bool {
	return c.apiKey != "" && c.baseURL != ""
}
