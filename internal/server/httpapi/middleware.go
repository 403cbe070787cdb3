package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/bloxpvp/robloxlink/internal/server/auth"
	"github.com/bloxpvp/robloxlink/internal/shared"
)

const claimsKey = "claims"

// requireAuth validates the bearer token and stores the parsed claims in
// the request locals. Tokens past the renewal threshold get a replacement
// attached in the X-New-Token response header.
func (s *HTTPServer) requireAuth(c fiber.Ctx) error {

	token, err := extractToken(c)
	if err != nil {
		return s.handleError(c, shared.ErrorUnauthorized)
	}

	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return s.handleError(c, err)
	}

	c.Locals(claimsKey, claims)

	if auth.ShouldRenew(claims, s.renewalThreshold) {
		fresh, err := s.link.RenewToken(claims.UserID, claims.RobloxID, claims.Username)
		if err != nil {
			s.logger.Warn(c.Context(), "token renewal failed", "user_id", claims.UserID, "error", err)
		} else {
			c.Set("X-New-Token", fresh)
		}
	}

	return c.Next()
}

func extractToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", shared.ErrorInvalidAuthHeaderFormat
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", shared.ErrorInvalidAuthHeaderFormat
	}

	return token, nil
}
