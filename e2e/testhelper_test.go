package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/auth"
	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/handler"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/middleware"
	"github.com/freshrecipes/studio/internal/model"
	"github.com/freshrecipes/studio/internal/service"
	"github.com/freshrecipes/studio/internal/upload"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	remote  *remote
	status  *upload.StatusStore
	workDir string
}

// remote stands in for the food database, the recipe backend and the media
// host. It records every request in arrival order.
type remote struct {
	mu       sync.Mutex
	calls    []string
	recipe   map[string]interface{}
	failHost bool
}

func (r *remote) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *remote) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *remote) posted() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recipe
}

func (r *remote) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case req.URL.Path == "/fdc/foods/search":
		r.record("search:" + req.URL.Query().Get("query"))
		fmt.Fprint(w, `{"foods":[{"fdcId":1,"description":"Apple"},{"fdcId":2,"description":"Apple juice"}]}`)
	case req.URL.Path == "/api/cloudinarySignature":
		r.record("signature:" + req.URL.Query().Get("folder"))
		fmt.Fprint(w, `{"signature":"sig","timestamp":1700000000,"upload_preset":"preset"}`)
	case strings.HasPrefix(req.URL.Path, "/media/"):
		r.record("upload:" + req.URL.Path)
		if r.failHost {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":"host down"}`)
			return
		}
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"secure_url":"https://cdn.test/%s"}`, req.FormValue("folder"))
	case req.URL.Path == "/api/upload":
		r.record("post")
		var rec map[string]interface{}
		_ = json.NewDecoder(req.Body).Decode(&rec)
		r.mu.Lock()
		r.recipe = rec
		r.mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// fakeTools replaces ffmpeg. Thumbnails are written to disk so the pipeline
// can stat them.
type fakeTools struct {
	dir string
}

func (f *fakeTools) Extract(ctx context.Context, req model.ExtractRequest) error { return nil }

func (f *fakeTools) Thumbnail(ctx context.Context, req model.ThumbnailRequest) (*model.ThumbnailResult, error) {
	path := filepath.Join(f.dir, "thumbnail.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		return nil, err
	}
	return &model.ThumbnailResult{Path: path}, nil
}

func (f *fakeTools) Duration(ctx context.Context, path string) (float64, error) { return 3.2, nil }

// setupApp creates a Fiber app wired like main.go. The HTTP clients are real
// and talk to an in-process fake of every remote; redis and asynq are off so
// uploads run in-process.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	rem := &remote{}
	srv := httptest.NewServer(rem)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		Nutrition:  config.NutritionConfig{BaseURL: srv.URL + "/fdc", APIKey: "key", DebounceMs: 1, MinQuery: 3},
		Backend:    config.BackendConfig{BaseURL: srv.URL},
		Cloudinary: config.CloudinaryConfig{CloudName: "demo", APIKey: "key", BaseURL: srv.URL + "/media"},
		Media:      config.MediaConfig{CacheDir: dir, TempDir: dir},
		RateLimit:  config.RateLimitConfig{SuggestPerMin: 10000, UploadPerHour: 10000},
	}
	log := logger.Discard()
	validate := validator.New()

	// External clients
	nutrition := client.NewNutritionClient(&cfg.Nutrition)
	backend := client.NewBackendClient(&cfg.Backend)
	host := client.NewCloudinaryClient(&cfg.Cloudinary, backend)

	// Services
	status := upload.NewStatusStore()
	studio := service.NewStudioService(nutrition, &fakeTools{dir: dir}, cfg, log, nil)
	pipeline := upload.NewPipeline(host, host, backend, status, log, nil)
	uploads := service.NewUploadService(studio, pipeline, status, nil, nil, log)

	// Auth: legacy HMAC only
	authenticator := auth.NewAuthenticator(nil, testJWTSecret)

	routes := &handler.Routes{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"nutrition": handler.Configured(nutrition.IsConfigured),
			"backend":   handler.Configured(backend.IsConfigured),
			"storage":   handler.Configured(host.IsConfigured),
		}),
		Studio:  handler.NewStudioHandler(studio, validate),
		Upload:  handler.NewUploadHandler(studio, uploads),
		Auth:    handler.NewAuthHandler(authenticator),
		APIAuth: middleware.NewAuthMiddleware(authenticator).Authenticate(),
		Limiter: middleware.NewRateLimiter(nil),
		Limits:  cfg.RateLimit,
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	routes.Register(app)

	return &testApp{app: app, remote: rem, status: status, workDir: dir}
}

// file writes a small local file and returns its file:// URI.
func (ta *testApp) file(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(ta.workDir, name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return model.FileURI(path)
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	return tokenFor(t, "test-user-123")
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	signed, err := auth.IssueHMACToken(testJWTSecret, userID, userID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// mustAuth performs an authenticated request and fails the test on
// transport errors.
func mustAuth(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doAuthRequest(t, app, method, path, body)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
