package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-todo-api/internal/httputil"
	"github.com/redmonkez12/go-todo-api/internal/user"
)

type fakeUsers map[uuid.UUID]*user.User

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

type brokenUsers struct{}

func (brokenUsers) FindByID(context.Context, uuid.UUID) (*user.User, error) {
	return nil, errors.New("connection refused")
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		wantErr error
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "bearer lower-case scheme", header: "bearer abc", want: "abc"},
		{name: "cookie", cookie: "xyz", want: "xyz"},
		{name: "header wins over cookie", header: "Bearer abc", cookie: "xyz", want: "abc"},
		{name: "nothing", wantErr: ErrNoToken},
		{name: "basic scheme", header: "Basic abc", wantErr: ErrInvalidToken},
		{name: "bearer without token", header: "Bearer ", wantErr: ErrInvalidToken},
		{name: "no scheme", header: "abc", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: tt.cookie})
			}

			got, err := ExtractToken(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	tokens := newTestJWT(t, time.Now())
	ann := &user.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com"}
	res := NewResolver(tokens, fakeUsers{ann.ID: ann})

	token, err := tokens.CreateToken(ann.ID)
	require.NoError(t, err)

	t.Run("header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		session, err := res.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, ann.ID, session.UserID)
		assert.Same(t, ann, session.User)
	})

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: token})

		session, err := res.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, ann.ID, session.UserID)
	})

	t.Run("unknown user", func(t *testing.T) {
		ghost, err := tokens.CreateToken(uuid.New())
		require.NoError(t, err)

		_, err = res.ResolveToken(context.Background(), ghost)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := newTestJWT(t, time.Now().Add(-8*24*time.Hour)).CreateToken(ann.ID)
		require.NoError(t, err)

		_, err = res.ResolveToken(context.Background(), old)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("store failure", func(t *testing.T) {
		_, err := NewResolver(tokens, brokenUsers{}).ResolveToken(context.Background(), token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserNotFound)
	})
}

func TestMiddleware_RequireAuth(t *testing.T) {
	tokens := newTestJWT(t, time.Now())
	ann := &user.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com"}
	mw := NewMiddleware(NewResolver(tokens, fakeUsers{ann.ID: ann}))

	token, err := tokens.CreateToken(ann.ID)
	require.NoError(t, err)
	ghost, err := tokens.CreateToken(uuid.New())
	require.NoError(t, err)
	expired, err := newTestJWT(t, time.Now().Add(-8*24*time.Hour)).CreateToken(ann.ID)
	require.NoError(t, err)

	var seen uuid.UUID
	protected := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid", "Bearer " + token, http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, httputil.CodeMissingAuth},
		{"garbage", "Bearer nope", http.StatusUnauthorized, httputil.CodeInvalidToken},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, httputil.CodeTokenExpired},
		{"deleted user", "Bearer " + ghost, http.StatusUnauthorized, httputil.CodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			r := httptest.NewRequest(http.MethodGet, "/todos", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr == "" {
				assert.Equal(t, ann.ID, seen)
				return
			}
			assert.Equal(t, uuid.Nil, seen)

			var body httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantErr, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSessionFromContext_Empty(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)
}
