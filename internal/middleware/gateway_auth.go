package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/auth"
	"github.com/freshrecipes/studio/pkg/response"
)

// Identity headers set by the gateway after /auth/verify succeeds.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// GatewayAuthMiddleware trusts the identity headers the gateway forwards.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(HeaderUserID)
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}
		setIdentity(c, &auth.Identity{
			UserID: userID,
			Email:  c.Get(HeaderUserEmail),
			Name:   c.Get(HeaderUserName),
		})
		return c.Next()
	}
}
