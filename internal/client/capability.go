package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/freshrecipes/studio/internal/model"
)

// Camera opens the native camera.
type Camera interface {
	Record(ctx context.Context, req model.CameraRequest) (*model.CameraResult, error)
}

// Editor opens the native video editor.
type Editor interface {
	Open(ctx context.Context, req model.EditorRequest) (*model.EditorResult, error)
}

// ImagePicker opens the native image picker.
type ImagePicker interface {
	Pick(ctx context.Context, req model.PickerRequest) (*model.PickerResult, error)
}

// ExecCamera runs a helper command that records a video. The request is
// written to its stdin as JSON and the result read from stdout. Empty output
// means the user cancelled.
type ExecCamera struct {
	command string
}

func NewExecCamera(command string) *ExecCamera {
	return &ExecCamera{command: command}
}

func (c *ExecCamera) Record(ctx context.Context, req model.CameraRequest) (*model.CameraResult, error) {
	var result model.CameraResult
	ok, err := runJSON(ctx, c.command, req, &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

// ExecEditor runs a helper command that edits a video, with the same stdin
// and stdout contract as ExecCamera.
type ExecEditor struct {
	command string
}

func NewExecEditor(command string) *ExecEditor {
	return &ExecEditor{command: command}
}

func (e *ExecEditor) Open(ctx context.Context, req model.EditorRequest) (*model.EditorResult, error) {
	var result model.EditorResult
	ok, err := runJSON(ctx, e.command, req, &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

func runJSON(ctx context.Context, command string, req interface{}, result interface{}) (bool, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, fmt.Errorf("no capability command configured")
	}

	in, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("failed to marshal request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("%s: %w: %s", fields[0], err, strings.TrimSpace(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(out, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s output: %w", fields[0], err)
	}
	return true, nil
}

// ReportedCamera replays a camera result the device already produced.
type ReportedCamera struct {
	Result *model.CameraResult
}

func (r ReportedCamera) Record(ctx context.Context, req model.CameraRequest) (*model.CameraResult, error) {
	return r.Result, nil
}

// ReportedEditor replays an editor result, or the error the editor raised.
type ReportedEditor struct {
	Result *model.EditorResult
	Err    error
}

func (r ReportedEditor) Open(ctx context.Context, req model.EditorRequest) (*model.EditorResult, error) {
	return r.Result, r.Err
}

// ReportedPicker replays the assets the device picker returned.
type ReportedPicker struct {
	Result *model.PickerResult
}

func (r ReportedPicker) Pick(ctx context.Context, req model.PickerRequest) (*model.PickerResult, error) {
	return r.Result, nil
}
