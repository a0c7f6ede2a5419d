package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard-go/internal/config"
)

func testConfig() config.Auth {
	return config.Auth{
		Username:          "admin",
		Password:          "secret",
		DeletePassword:    "wipe-it",
		SessionTTLMinutes: 60,
	}
}

func TestLoginAndValidate(t *testing.T) {
	s := NewSessions(testConfig())

	token, ok := s.Login("admin", "secret")
	require.True(t, ok)
	assert.NotEmpty(t, token)
	assert.True(t, s.Valid(token))

	s.Logout(token)
	assert.False(t, s.Valid(token))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := NewSessions(testConfig())

	testCases := []struct {
		name     string
		username string
		password string
	}{
		{name: "Wrong password", username: "admin", password: "nope"},
		{name: "Wrong username", username: "root", password: "secret"},
		{name: "Empty", username: "", password: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := s.Login(tc.username, tc.password)
			assert.False(t, ok)
			assert.Empty(t, token)
		})
	}
}

func TestExpiredSessionIsInvalid(t *testing.T) {
	cfg := testConfig()
	s := NewSessions(cfg)

	token, ok := s.Login("admin", "secret")
	require.True(t, ok)

	// Age the session past its TTL.
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	assert.False(t, s.Valid(token))
	assert.False(t, s.Valid(token), "expired token stays invalid after removal")
}

func TestValidRejectsUnknownAndEmptyTokens(t *testing.T) {
	s := NewSessions(testConfig())
	assert.False(t, s.Valid(""))
	assert.False(t, s.Valid("not-a-session"))
}

func TestCheckDeletePassword(t *testing.T) {
	s := NewSessions(testConfig())
	assert.True(t, s.CheckDeletePassword("wipe-it"))
	assert.False(t, s.CheckDeletePassword("guess"))
}

func TestRequireMiddleware(t *testing.T) {
	s := NewSessions(testConfig())
	token, ok := s.Login("admin", "secret")
	require.True(t, ok)

	handler := s.Require(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("NoCookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidCookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
		req.AddCookie(Cookie(token, 0))
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("StaleCookie", func(t *testing.T) {
		s.Logout(token)
		req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
		req.AddCookie(Cookie(token, 0))
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
