package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshrecipes/studio/internal/auth"
	"github.com/freshrecipes/studio/pkg/response"
)

const (
	localUserID = "userId"
	localEmail  = "email"
	localName   = "name"
)

// AuthMiddleware resolves the bearer token into the request's user.
type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

func NewAuthMiddleware(authenticator *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate rejects requests without a valid token.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := m.authenticator.Resolve(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return response.Unauthorized(c, err.Error())
		}
		setIdentity(c, id)
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(localUserID, id.UserID)
	c.Locals(localEmail, id.Email)
	c.Locals(localName, id.Name)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals(localUserID).(string); ok {
		return userID
	}
	return ""
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *fiber.Ctx) string {
	if email, ok := c.Locals(localEmail).(string); ok {
		return email
	}
	return ""
}
