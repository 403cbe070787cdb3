// Package shared defines sentinel errors and small random-string helpers
// used across the service layers. Callers should match errors with errors.Is.
package shared

import "errors"

var (

	// repository errors
	ErrorNotFound = errors.New("not found")

	// generic service errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// linking handshake errors
	ErrorUnknownHandle       = errors.New("unknown roblox username")
	ErrorChallengeMismatch   = errors.New("description does not match")
	ErrorUpstreamUnavailable = errors.New("roblox api unavailable")

	// token lifecycle errors
	ErrorInvalidToken = errors.New("invalid token")
	ErrorTokenExpired = errors.New("token expired")

	ErrorInvalidAuthHeaderFormat = errors.New("invalid auth header format")
)
