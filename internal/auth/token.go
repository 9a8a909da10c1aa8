package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionDuration is the fixed lifetime of every issued token
const SessionDuration = 7 * 24 * time.Hour

// userIDClaim is the claim name carrying the canonical user id
const userIDClaim = "userId"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenService defines the interface for token creation and validation.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// TokenClaims represents the verified contents of a token
type TokenClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// parseUserIDClaim accepts only the canonical UUID string form produced by
// uuid.UUID.String. Braced, URN, upper-case or hex-only spellings are rejected.
func parseUserIDClaim(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil || id.String() != raw {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
