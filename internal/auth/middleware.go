package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-todo-api/internal/httputil"
	"github.com/redmonkez12/go-todo-api/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// Middleware handles authentication for protected routes
type Middleware struct {
	resolver *Resolver
}

func NewMiddleware(resolver *Resolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// RequireAuth resolves the request's session or answers 401
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		session, err := m.resolver.Resolve(r)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoToken):
				httputil.RespondErrorWithCode(w, "No token provided", httputil.CodeMissingAuth, http.StatusUnauthorized)
			case errors.Is(err, ErrExpiredToken):
				httputil.RespondErrorWithCode(w, "Token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
			case errors.Is(err, ErrInvalidToken):
				httputil.RespondErrorWithCode(w, "Invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			case errors.Is(err, ErrUserNotFound):
				httputil.RespondErrorWithCode(w, "Invalid token", httputil.CodeUserNotFound, http.StatusUnauthorized)
			default:
				logger.Error("session resolution failed", "error", err.Error())
				httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
			}
			return
		}

		ctx := WithSession(r.Context(), session)
		ctx = logging.WithLogger(ctx, logger.WithFields(map[string]any{"user_id": session.UserID.String()}))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithSession stores the resolved session in ctx
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// SessionFromContext extracts the resolved session from the request context
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*Session)
	return session, ok && session != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return session.UserID, true
}
