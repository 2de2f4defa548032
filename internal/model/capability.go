package model

import "encoding/json"

// CameraRequest asks the camera capability for a video recording.
type CameraRequest struct {
	License string `json:"license"`
	UserID  string `json:"userID"`
	Video   bool   `json:"video"`
}

// CameraResult is what the camera capability returns. Either URI is set, or
// the recording is nested under Recordings. An empty result means cancel.
type CameraResult struct {
	URI        string      `json:"uri,omitempty"`
	Recordings []Recording `json:"recordings,omitempty"`
}

type Recording struct {
	Videos []VideoClip `json:"videos"`
}

type VideoClip struct {
	URI string `json:"uri"`
}

// CapturedURI returns the top-level URI, else the first recording's first video.
func (r *CameraResult) CapturedURI() string {
	if r == nil {
		return ""
	}
	if r.URI != "" {
		return r.URI
	}
	if len(r.Recordings) > 0 && len(r.Recordings[0].Videos) > 0 {
		return r.Recordings[0].Videos[0].URI
	}
	return ""
}

// EditorPreset selects the editor configuration.
type EditorPreset string

const EditorPresetVideo EditorPreset = "VIDEO"

type EditorRequest struct {
	License   string       `json:"license"`
	UserID    string       `json:"userID"`
	SourceURI string       `json:"sourceUri"`
	Preset    EditorPreset `json:"preset"`
}

// EditorResult carries the exported artifact. An empty artifact means the
// user closed the editor.
type EditorResult struct {
	Artifact string `json:"artifact,omitempty"`
}

// ExtractRequest asks for FrameCount stills from SourcePath. OutputPattern
// contains a 4-digit frame index placeholder (%04d), 1-based.
type ExtractRequest struct {
	SourcePath    string  `json:"sourcePath"`
	FrameCount    int     `json:"frameCount"`
	OutputPattern string  `json:"outputPattern"`
	FrameRateHz   float64 `json:"frameRateHz"`
}

type ThumbnailRequest struct {
	VideoURI         string  `json:"videoUri"`
	TimestampSeconds float64 `json:"timestampSeconds"`
}

type ThumbnailResult struct {
	Path string `json:"path"`
}

// PickerRequest asks the image picker for a single asset.
type PickerRequest struct {
	MediaType string `json:"mediaType"`
}

type PickerResult struct {
	Assets []ImageAsset `json:"assets"`
}

type ImageAsset struct {
	URI    string `json:"uri" validate:"required"`
	Width  int    `json:"width" validate:"min=0"`
	Height int    `json:"height" validate:"min=0"`
}

// Landscape reports whether the asset is wider than it is tall.
func (a ImageAsset) Landscape() bool {
	return a.Width > a.Height
}

// Signature is a signed upload destination issued by the backend.
type Signature struct {
	Signature    string      `json:"signature"`
	Timestamp    json.Number `json:"timestamp"`
	UploadPreset string      `json:"upload_preset"`
}
