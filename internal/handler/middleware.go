package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/promokit/promo-redeem/internal/auth"
)

// TokenVerifier validates admin session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

const ctxAdminEmailKey = "admin_email"

// RequireAdmin returns a middleware guarding the /admin route group. It
// expects an Authorization: Bearer header carrying a valid session token.
func RequireAdmin(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return errorResponse(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "access token required")
		}

		claims, err := tokens.Verify(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("admin token rejected")
			return errorResponse(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired token")
		}

		c.Locals(ctxAdminEmailKey, claims.Email)
		return c.Next()
	}
}
