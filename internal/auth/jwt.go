package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwtClaims is the wire form. UserID is a string field, so any other JSON
// type in the token fails to decode and the token is rejected.
type jwtClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 tokens with a secret injected at construction
type JWTService struct {
	secret []byte
	now    func() time.Time
}

func NewJWTService(secret []byte) (*JWTService, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &JWTService{secret: key, now: time.Now}, nil
}

// CreateToken issues a token for userID valid for SessionDuration
func (s *JWTService) CreateToken(userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("cannot issue token for nil user id")
	}

	now := s.now()
	claims := jwtClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionDuration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// VerifyToken checks signature, algorithm and expiry and returns the claims
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	claims := &jwtClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	userID, err := parseUserIDClaim(claims.UserID)
	if err != nil {
		return nil, err
	}

	return &TokenClaims{
		UserID:    userID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
