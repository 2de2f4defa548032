package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/auth"
	"github.com/freshrecipes/studio/internal/middleware"
)

// AuthHandler answers the gateway's forward-auth checks.
type AuthHandler struct {
	authenticator *auth.Authenticator
}

func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// Verify handles GET /auth/verify. It returns 200 with the X-User-* headers
// for a valid token and 401 otherwise.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	id, err := h.authenticator.Resolve(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set(middleware.HeaderUserID, id.UserID)
	c.Set(middleware.HeaderUserEmail, id.Email)
	if id.Name != "" {
		c.Set(middleware.HeaderUserName, id.Name)
	}
	return c.SendStatus(fiber.StatusOK)
}
