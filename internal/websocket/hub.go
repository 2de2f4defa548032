package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

const (
	sendBuffer   = 256
	pingInterval = 30 * time.Second
)

// Client represents a WebSocket client following one user's uploads.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans upload status out to every connection of the owning user.
type Hub struct {
	// Clients grouped by user ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	log *slog.Logger
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	UserID  string
	Message []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, sendBuffer),
		done:       make(chan struct{}),
		log:        logger.OrDefault(log),
	}
}

// Run is the hub's main loop. It owns the client map and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.log.Debug("websocket client registered", "user_id", client.UserID)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.UserID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.log.Debug("websocket client unregistered", "user_id", client.UserID)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.UserID] {
				select {
				case client.Send <- msg.Message:
				default:
					close(client.Send)
					delete(h.clients[msg.UserID], client)
				}
			}
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastStatus is an upload.Listener. Progress goes out as a status
// message; a failed upload also sends an error message.
func (h *Hub) BroadcastStatus(st model.UploadStatus) {
	msgType := model.WSMessageTypeStatus
	if st.State == model.UploadDone {
		msgType = model.WSMessageTypeDone
	}
	h.send(st.UserID, model.WSStatusMessage{Type: msgType, Status: st})

	if st.State == model.UploadFailed {
		h.BroadcastError(st.UserID, st.JobID, "UPLOAD_FAILED", model.AlertUploadFailed.Message)
	}
}

// BroadcastError sends an error message to all of a user's connections
func (h *Hub) BroadcastError(userID, jobID, code, message string) {
	h.send(userID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
}

func (h *Hub) send(userID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal websocket message", "error", err)
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{UserID: userID, Message: data}:
	default:
		h.log.Warn("websocket broadcast queue full, dropping message", "user_id", userID)
	}
}

// HandleConnection serves one connection. The current slot is sent first so
// a late subscriber sees an upload already in flight.
func (h *Hub) HandleConnection(c *websocket.Conn, userID string, current model.UploadStatus) {
	client := &Client{
		UserID: userID,
		Conn:   c,
		Send:   make(chan []byte, sendBuffer),
	}

	if data, err := json.Marshal(model.WSStatusMessage{Type: model.WSMessageTypeStatus, Status: current}); err == nil {
		client.Send <- data
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", "user_id", userID, "error", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case client.Send <- pong:
			default:
			}
		}
	}
}
