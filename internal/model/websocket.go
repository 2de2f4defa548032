package model

// WebSocket message types
const (
	WSMessageTypeStatus = "status"
	WSMessageTypeDone   = "done"
	WSMessageTypeError  = "error"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage carries the upload slot for one user.
type WSStatusMessage struct {
	Type   string       `json:"type"`
	Status UploadStatus `json:"status"`
}

// WSErrorMessage reports a failed submission.
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
