// Package auth implements the session token scheme: signed HS256 JWTs
// carrying the linked account identity, with a fixed validity window and a
// renewal threshold past which callers should transparently reissue.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

const (
	TokenIssuer   = "BLOXPVP"
	TokenAudience = "BLOXPVP_USERS"
)

// Claims embeds the registered claims and the linked account identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	RobloxID int64  `json:"robloxId"`
	Username string `json:"username"`
}

func GenerateToken(userID string, robloxID int64, username string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   userID,
		RobloxID: robloxID,
		Username: username,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates the signature, expiry, issuer and audience of the
// token and returns its claims. An expired token is reported as
// shared.ErrorTokenExpired; any other defect (malformed, forged, wrong
// issuer) is shared.ErrorInvalidToken. Whether the referenced account still
// exists is checked by the caller.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrorTokenExpired
		}
		return nil, shared.ErrorInvalidToken
	}

	if !token.Valid {
		return nil, shared.ErrorInvalidToken
	}

	return claims, nil
}

// ShouldRenew reports whether the token is past the renewal threshold and a
// fresh token should be attached to the response for the remainder of the
// session.
func ShouldRenew(claims *Claims, threshold time.Duration) bool {
	if claims.IssuedAt == nil {
		return true
	}
	return time.Since(claims.IssuedAt.Time) > threshold
}
