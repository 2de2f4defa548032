package model

import "strings"

// MediaKind distinguishes the two kinds of media a draft can reference.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

// MediaReference points at a local media file. References are replaced
// wholesale and never mutated in place.
type MediaReference struct {
	URI  string    `json:"uri" yaml:"uri"`
	Kind MediaKind `json:"kind" yaml:"kind"`
}

func NewVideo(uri string) *MediaReference {
	return &MediaReference{URI: uri, Kind: MediaKindVideo}
}

func NewImage(uri string) *MediaReference {
	return &MediaReference{URI: uri, Kind: MediaKindImage}
}

// Path returns the filesystem path of the reference with any file:// scheme removed.
func (m *MediaReference) Path() string {
	if m == nil {
		return ""
	}
	return StripFileScheme(m.URI)
}

// Empty reports whether the reference is unset.
func (m *MediaReference) Empty() bool {
	return m == nil || m.URI == ""
}

// StripFileScheme removes a leading file:// from a URI.
func StripFileScheme(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// FileURI prefixes a filesystem path with file:// unless it already has a scheme.
func FileURI(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// Platform is the device platform reporting a capability result.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Screen is where the flow currently is for a session.
type Screen string

const (
	ScreenCapture Screen = "capture"
	ScreenEdit    Screen = "edit"
	ScreenCompose Screen = "compose"
	ScreenFrames  Screen = "frames"
	ScreenHome    Screen = "home"
)

// Alert is a user-visible message, queued until the device shows it.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
