package model

// CaptureReportRequest is what the device reports after the camera closes.
type CaptureReportRequest struct {
	Platform Platform      `json:"platform" validate:"required,oneof=ios android"`
	Result   *CameraResult `json:"result"`
}

// EditReportRequest is what the device reports after the editor closes.
// Error is set when the editor threw.
type EditReportRequest struct {
	Result *EditorResult `json:"result"`
	Error  string        `json:"error" validate:"max=500"`
}

// DraftPatchRequest updates any subset of the draft's text fields.
type DraftPatchRequest struct {
	DishName    *string `json:"dishName" validate:"omitempty,max=500"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	PrepTime    *string `json:"prepTime" validate:"omitempty,max=20"`
	CookTime    *string `json:"cookTime" validate:"omitempty,max=20"`
	Yields      *string `json:"yields" validate:"omitempty,max=50"`
}

type SelectRequest struct {
	Value string `json:"value" validate:"max=50"`
}

type TextRequest struct {
	Text string `json:"text" validate:"max=500"`
}

type QuantityRequest struct {
	Quantity string `json:"quantity" validate:"max=20"`
}

type UnitRequest struct {
	Unit string `json:"unit" validate:"required"`
}

// SelectSuggestionRequest picks one of the visible suggestions by position.
type SelectSuggestionRequest struct {
	Index int `json:"index" validate:"min=0"`
}

type TagRequest struct {
	Text string `json:"text" validate:"required,max=100"`
}

// ImagePickRequest is what the device reports after the image picker closes.
// An empty asset list means the picker was cancelled; Error is set when the
// picker itself failed.
type ImagePickRequest struct {
	Assets []ImageAsset `json:"assets" validate:"omitempty,dive"`
	Error  string       `json:"error,omitempty"`
}

// FramesBeginRequest starts extraction. A zero duration asks the server to
// probe the video.
type FramesBeginRequest struct {
	DurationSeconds float64 `json:"durationSeconds" validate:"min=0"`
}

type ScrubRequest struct {
	Offset float64 `json:"offset"`
}

// SessionCreateResponse is returned when a session is opened.
type SessionCreateResponse struct {
	SessionID string `json:"sessionId"`
	Screen    Screen `json:"screen"`
}

// SubmitResponse is returned when a submission is accepted.
type SubmitResponse struct {
	JobID  string      `json:"jobId"`
	Status UploadState `json:"status"`
}

// ScrubResponse reports the frame under the strip's center.
type ScrubResponse struct {
	Index       int     `json:"index"`
	SeekSeconds float64 `json:"seekSeconds"`
}
