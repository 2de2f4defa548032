package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/service"
	ws "github.com/freshrecipes/studio/internal/websocket"
)

// WebsocketHandler streams a user's upload status.
type WebsocketHandler struct {
	hub     *ws.Hub
	uploads *service.UploadService
}

func NewWebsocketHandler(hub *ws.Hub, uploads *service.UploadService) *WebsocketHandler {
	return &WebsocketHandler{hub: hub, uploads: uploads}
}

// Upgrade rejects plain HTTP requests on websocket routes.
func (h *WebsocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Uploads handles GET /ws/uploads/:userId
func (h *WebsocketHandler) Uploads() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID := c.Params("userId")
		h.hub.HandleConnection(c, userID, h.uploads.Status(userID))
	})
}
