package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	app := &App{loadConfig: func() (*config.Config, error) { return cfg, nil }}
	cmd := newRootCmd(app)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// fakeRemote answers as the food database, the recipe backend and the
// Cloudinary upload API.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRemote) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.URL.Path == "/foods/search":
		f.calls = append(f.calls, "search:"+r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"foods":[{"fdcId":7,"description":"Chickpeas"}]}`)
	case r.URL.Path == "/api/cloudinarySignature":
		f.calls = append(f.calls, "signature:"+r.URL.Query().Get("folder"))
		fmt.Fprint(w, `{"signature":"s","timestamp":1,"upload_preset":"p"}`)
	case strings.HasSuffix(r.URL.Path, "/upload") && r.URL.Path != "/api/upload":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.calls = append(f.calls, "upload:"+r.FormValue("folder"))
		fmt.Fprintf(w, `{"secure_url":"https://cdn.test/%s"}`, r.FormValue("folder"))
	case r.URL.Path == "/api/upload":
		f.calls = append(f.calls, "post")
		fmt.Fprint(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testConfig(url string) *config.Config {
	return &config.Config{
		Nutrition:  config.NutritionConfig{BaseURL: url, APIKey: "k", MinQuery: 3},
		Backend:    config.BackendConfig{BaseURL: url},
		Cloudinary: config.CloudinaryConfig{CloudName: "demo", APIKey: "k", BaseURL: url},
	}
}

func TestSuggest(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	out, _, err := runCLI(t, testConfig(srv.URL), "suggest", "chick", "pea")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	var res suggestResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Query != "chick pea" || len(res.Suggestions) != 1 || res.Suggestions[0].Description != "Chickpeas" {
		t.Errorf("unexpected result %+v", res)
	}
	if calls := remote.list(); len(calls) != 1 || calls[0] != "search:chick pea" {
		t.Errorf("calls = %v", calls)
	}
}

func TestSuggest_yamlOutput(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	out, _, err := runCLI(t, testConfig(srv.URL), "--format", "yaml", "suggest", "chick")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !strings.Contains(out, "description: Chickpeas") {
		t.Errorf("expected YAML output, got:\n%s", out)
	}
}

func TestSuggest_shortQueryIsNotLookedUp(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	_, stderr, err := runCLI(t, testConfig(srv.URL), "suggest", "ab")
	if err == nil {
		t.Fatal("expected error for a two-character query")
	}
	if !strings.Contains(stderr, "at least 3") {
		t.Errorf("stderr = %q", stderr)
	}
	if calls := remote.list(); len(calls) != 0 {
		t.Errorf("expected no lookup, got %v", calls)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const completeDraft = `dishName: Hummus
description: Smooth and lemony
prepTime: "10"
cookTime: "0"
yields: "4"
category: Snack
cuisine: Mediterranean
ingredients:
  - name: Chickpeas
    quantity: "1"
    unit: can
steps:
  - Blend everything
tags: []
dietaryTags: [vegan]
video:
  uri: media/hummus.mp4
  kind: video
dishImage:
  uri: media/dish.jpg
  kind: image
`

func TestSubmit(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "media"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "media/hummus.mp4", "video bytes")
	writeFile(t, dir, "media/dish.jpg", "jpeg bytes")
	writeFile(t, dir, "draft.yaml", completeDraft)

	out, stderr, err := runCLI(t, testConfig(srv.URL), "submit", filepath.Join(dir, "draft.yaml"), "--user", "u-1")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, stderr)
	}

	want := []string{"signature:videos", "upload:videos", "signature:recipe-image", "upload:recipe-image", "post"}
	if got := remote.list(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}

	var job model.UploadJob
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if job.State != model.UploadDone || job.Progress != 100 || job.UserID != "u-1" {
		t.Errorf("unexpected job %+v", job)
	}
	if !strings.Contains(stderr, "uploading 100%") {
		t.Errorf("expected progress on stderr, got:\n%s", stderr)
	}
}

func TestSubmit_incompleteDraftMakesNoCalls(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	dir := t.TempDir()
	writeFile(t, dir, "draft.yaml", "dishName: Hummus\n")

	_, stderr, err := runCLI(t, testConfig(srv.URL), "submit", filepath.Join(dir, "draft.yaml"), "--user", "u-1")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(stderr, "description") {
		t.Errorf("expected missing fields on stderr, got %q", stderr)
	}
	if calls := remote.list(); len(calls) != 0 {
		t.Errorf("expected no remote calls, got %v", calls)
	}
}

func TestSubmit_emptyIngredientListIsIncomplete(t *testing.T) {
	remote := &fakeRemote{}
	srv := httptest.NewServer(remote)
	defer srv.Close()

	dir := t.TempDir()
	i := strings.Index(completeDraft, "ingredients:")
	j := strings.Index(completeDraft, "steps:")
	writeFile(t, dir, "draft.yaml", completeDraft[:i]+"ingredients: []\n"+completeDraft[j:])

	_, stderr, err := runCLI(t, testConfig(srv.URL), "submit", filepath.Join(dir, "draft.yaml"), "--user", "u-1")
	if !errors.Is(err, model.ErrValidationFailure) {
		t.Fatalf("err = %v, want ErrValidationFailure", err)
	}
	if !strings.Contains(stderr, "missing: ingredients") {
		t.Errorf("expected ingredients reported missing, got %q", stderr)
	}
	if calls := remote.list(); len(calls) != 0 {
		t.Errorf("expected no remote calls, got %v", calls)
	}
}

func TestSubmit_requiresUser(t *testing.T) {
	t.Setenv("STUDIO_USER", "")
	dir := t.TempDir()
	writeFile(t, dir, "draft.yaml", completeDraft)

	if _, _, err := runCLI(t, testConfig("http://127.0.0.1:0"), "submit", filepath.Join(dir, "draft.yaml")); err == nil {
		t.Fatal("expected error without --user")
	}
}

func TestLoadDraft_resolvesRelativeMedia(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "draft.yaml", completeDraft+"thumbnail:\n  uri: https://cdn.test/t.jpg\n  kind: image\n")

	d, err := loadDraft(filepath.Join(dir, "draft.yaml"))
	if err != nil {
		t.Fatalf("loadDraft: %v", err)
	}
	if want := model.FileURI(filepath.Join(dir, "media", "hummus.mp4")); d.Video.URI != want {
		t.Errorf("video = %s, want %s", d.Video.URI, want)
	}
	if d.Thumbnail.URI != "https://cdn.test/t.jpg" {
		t.Errorf("remote thumbnail rewritten to %s", d.Thumbnail.URI)
	}
	if len(d.DietaryTags) != 1 || len(d.Tags) != 0 {
		t.Errorf("tags = %v / %v", d.Tags, d.DietaryTags)
	}
}

type fakeTools struct {
	thumb    string
	extracts []model.ExtractRequest
}

func (f *fakeTools) Extract(ctx context.Context, req model.ExtractRequest) error {
	f.extracts = append(f.extracts, req)
	return nil
}

func (f *fakeTools) Thumbnail(ctx context.Context, req model.ThumbnailRequest) (*model.ThumbnailResult, error) {
	return &model.ThumbnailResult{Path: f.thumb}, nil
}

func (f *fakeTools) Duration(ctx context.Context, path string) (float64, error) { return 3.2, nil }

func TestFrames_picksFrameUnderOffset(t *testing.T) {
	dir := t.TempDir()
	tools := &fakeTools{thumb: filepath.Join(dir, "thumb.jpg")}
	app := &App{
		Format: "json",
		Config: &config.Config{Media: config.MediaConfig{CacheDir: dir}},
		Log:    logger.Discard(),
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)

	if err := runFrames(cmd, app, tools, filepath.Join(dir, "dish.mp4"), 60, 0); err != nil {
		t.Fatalf("runFrames: %v", err)
	}

	var res framesResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if res.Frames != 4 || res.Index != 2 || res.Seconds != 2 || res.Duration != 3.2 {
		t.Errorf("unexpected result %+v", res)
	}
	if want := model.FileURI(filepath.Join(dir, "dish_0003.png")); res.Thumbnail == nil || res.Thumbnail.URI != want {
		t.Errorf("thumbnail = %+v, want %s", res.Thumbnail, want)
	}
	if len(tools.extracts) != 1 || tools.extracts[0].FrameCount != 4 {
		t.Errorf("extracts = %+v", tools.extracts)
	}
}

func TestCapture_cancelledCamera(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}
	cfg := &config.Config{Capability: config.CapabilityConfig{CameraCommand: "/bin/true"}}

	out, _, err := runCLI(t, cfg, "capture")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if strings.TrimSpace(out) != `{"cancelled":true}` {
		t.Errorf("output = %q", out)
	}
}

func TestCapture_recordsAndEdits(t *testing.T) {
	if _, err := os.Stat("/bin/cat"); err != nil {
		t.Skip("/bin/cat not available")
	}
	dir := t.TempDir()
	recorded := filepath.Join(dir, "rec.mp4")
	edited := filepath.Join(dir, "edited.mp4")
	writeFile(t, dir, "rec.mp4", "video")
	writeFile(t, dir, "camera.json", fmt.Sprintf(`{"uri":%q}`, model.FileURI(recorded)))
	writeFile(t, dir, "editor.json", fmt.Sprintf(`{"artifact":%q}`, model.FileURI(edited)))

	cfg := &config.Config{
		Capability: config.CapabilityConfig{
			CameraCommand: "/bin/cat " + filepath.Join(dir, "camera.json"),
			EditorCommand: "/bin/cat " + filepath.Join(dir, "editor.json"),
		},
		Media: config.MediaConfig{TempDir: dir},
	}

	out, stderr, err := runCLI(t, cfg, "capture", "--platform", "android")
	if err != nil {
		t.Fatalf("capture: %v\n%s", err, stderr)
	}

	var res struct {
		Recorded *model.MediaReference `json:"recorded"`
		Video    *model.MediaReference `json:"video"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Recorded == nil || res.Recorded.URI != model.FileURI(recorded) {
		t.Errorf("recorded = %+v", res.Recorded)
	}
	if res.Video == nil || res.Video.URI != model.FileURI(edited) {
		t.Errorf("video = %+v", res.Video)
	}
}

func TestCapture_unknownPlatform(t *testing.T) {
	if _, _, err := runCLI(t, &config.Config{}, "capture", "--platform", "web"); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
