package model

import (
	"encoding/json"
	"fmt"
)

// FrameStatus is the state of one frame slot.
type FrameStatus int

const (
	FrameLoading FrameStatus = iota
	FrameReady
)

func (s FrameStatus) String() string {
	switch s {
	case FrameReady:
		return "READY"
	default:
		return "LOADING"
	}
}

func (s FrameStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *FrameStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v {
	case "LOADING":
		*s = FrameLoading
	case "READY":
		*s = FrameReady
	default:
		return fmt.Errorf("unknown frame status %q", v)
	}
	return nil
}

// Frame is one slot of the scrub strip. URI is only set once the slot is ready.
type Frame struct {
	Status FrameStatus `json:"status"`
	URI    string      `json:"uri,omitempty"`
}

func LoadingFrame() Frame {
	return Frame{Status: FrameLoading}
}

func ReadyFrame(uri string) Frame {
	return Frame{Status: FrameReady, URI: uri}
}

func (f Frame) Ready() bool {
	return f.Status == FrameReady && f.URI != ""
}
