package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-todo-api/internal/user"
)

var (
	ErrNoToken      = errors.New("no token provided")
	ErrUserNotFound = errors.New("user not found")
)

// UserFinder loads the account a token refers to
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Session is the verified identity behind one request
type Session struct {
	UserID uuid.UUID
	User   *user.User
}

// Resolver turns the credential on a request into a Session
type Resolver struct {
	tokens TokenService
	users  UserFinder
}

func NewResolver(tokens TokenService, users UserFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve extracts, verifies and resolves the request's token.
// Expected failures are ErrNoToken, ErrInvalidToken, ErrExpiredToken and ErrUserNotFound;
// anything else is an infrastructure error.
func (res *Resolver) Resolve(r *http.Request) (*Session, error) {
	token, err := ExtractToken(r)
	if err != nil {
		return nil, err
	}

	return res.ResolveToken(r.Context(), token)
}

// ResolveToken verifies a raw token and loads its user
func (res *Resolver) ResolveToken(ctx context.Context, token string) (*Session, error) {
	claims, err := res.tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	u, err := res.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return &Session{UserID: u.ID, User: u}, nil
}

// ExtractToken reads the bearer token from the Authorization header, or
// from the session cookie when no header is sent
func ExtractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", ErrInvalidToken
		}
		return token, nil
	}

	token, err := GetAccessTokenFromCookie(r)
	if err != nil {
		return "", ErrNoToken
	}
	return token, nil
}
