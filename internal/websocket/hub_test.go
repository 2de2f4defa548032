package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var out map[string]interface{}
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("bad message %s: %v", data, err)
		}
		return out
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return nil
}

func TestHub_routesByUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.Discard())
	go hub.Run(ctx)

	alice := &Client{UserID: "alice", Send: make(chan []byte, 8)}
	bob := &Client{UserID: "bob", Send: make(chan []byte, 8)}
	hub.Register(alice)
	hub.Register(bob)

	hub.BroadcastStatus(model.UploadStatus{UserID: "alice", JobID: "j1", State: model.UploadUploading, Uploading: true, Progress: 40})

	msg := receive(t, alice)
	if msg["type"] != model.WSMessageTypeStatus {
		t.Errorf("type = %v", msg["type"])
	}
	status := msg["status"].(map[string]interface{})
	if status["progress"].(float64) != 40 {
		t.Errorf("progress = %v", status["progress"])
	}

	select {
	case data := <-bob.Send:
		t.Errorf("bob received %s", data)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_finalStates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.Discard())
	go hub.Run(ctx)

	c := &Client{UserID: "u", Send: make(chan []byte, 8)}
	hub.Register(c)

	hub.BroadcastStatus(model.UploadStatus{UserID: "u", JobID: "j", State: model.UploadDone})
	if msg := receive(t, c); msg["type"] != model.WSMessageTypeDone {
		t.Errorf("type = %v, want done", msg["type"])
	}

	hub.BroadcastStatus(model.UploadStatus{UserID: "u", JobID: "j", State: model.UploadFailed})
	if msg := receive(t, c); msg["type"] != model.WSMessageTypeStatus {
		t.Errorf("type = %v, want status", msg["type"])
	}
	msg := receive(t, c)
	if msg["type"] != model.WSMessageTypeError {
		t.Fatalf("type = %v, want error", msg["type"])
	}
	if msg["error"].(map[string]interface{})["code"] != "UPLOAD_FAILED" {
		t.Errorf("error = %v", msg["error"])
	}
}

func TestHub_unregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.Discard())
	go hub.Run(ctx)

	c := &Client{UserID: "u", Send: make(chan []byte, 1)}
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}
