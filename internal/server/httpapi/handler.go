package httpapi

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/bloxpvp/robloxlink/internal/server/auth"
	"github.com/bloxpvp/robloxlink/internal/shared"
)

type connectRequest struct {
	Username string `json:"username"`
	Referrer string `json:"referrer"`
}

type profileRequest struct {
	UserID int64 `json:"userId"`
}

// connect runs one step of the handshake. The response shape tells the
// client which step it is on: a "description" to place in the bio, or a
// "token" plus the account once verification succeeded.
func (s *HTTPServer) connect(c fiber.Ctx) error {

	var req connectRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	res, err := s.link.RequestLink(c.Context(), req.Username, req.Referrer, c.IP())
	if err != nil {
		return s.handleError(c, err)
	}

	if res.Token != "" {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"token": res.Token,
			"user":  res.Account.Public(),
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"description": res.Challenge,
	})
}

// me returns the authenticated account together with a fresh token.
func (s *HTTPServer) me(c fiber.Ctx) error {

	claims, ok := c.Locals(claimsKey).(*auth.Claims)
	if !ok {
		return s.handleError(c, shared.ErrorInvalidToken)
	}

	account, token, err := s.link.AutoLogin(c.Context(), claims.UserID)
	if err != nil {
		// The account behind a syntactically valid token is gone.
		if errors.Is(err, shared.ErrorNotFound) {
			return s.handleError(c, shared.ErrorInvalidToken)
		}
		return s.handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":  account.Public(),
		"token": token,
	})
}

// profile returns public stats for any linked Roblox id.
func (s *HTTPServer) profile(c fiber.Ctx) error {

	var req profileRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	stats, err := s.link.Profile(c.Context(), req.UserID)
	if err != nil {
		return s.handleError(c, err)
	}

	return c.Status(http.StatusOK).JSON(stats)
}

func (s *HTTPServer) handleError(c fiber.Ctx, err error) error {

	status := mapErrorToStatus(err)

	// Internal causes are logged, never echoed to the client.
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Context(), "request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrorUnknownHandle),
		errors.Is(err, shared.ErrorNotFound):
		return http.StatusNotFound

	case errors.Is(err, shared.ErrorValidation),
		errors.Is(err, shared.ErrorChallengeMismatch):
		return http.StatusBadRequest

	case errors.Is(err, shared.ErrorUpstreamUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, shared.ErrorTokenExpired),
		errors.Is(err, shared.ErrorUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, shared.ErrorInvalidToken):
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}
