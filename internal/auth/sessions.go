package auth

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"trade-dashboard-go/internal/config"
)

// CookieName is the session cookie issued on login.
const CookieName = "dashboard_session"

// Sessions issues and validates dashboard session cookies. Sessions
// live in memory: a restart logs every viewer out, which is acceptable
// for a single-operator dashboard.
type Sessions struct {
	cfg config.Auth
	ttl time.Duration

	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

// NewSessions creates a session store from the auth configuration.
func NewSessions(cfg config.Auth) *Sessions {
	return &Sessions{
		cfg:    cfg,
		ttl:    time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		tokens: make(map[string]time.Time),
	}
}

// Login validates the credentials and, on success, returns a fresh
// session token. Comparison is constant-time.
func (s *Sessions) Login(username, password string) (string, bool) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	if !userOK || !passOK {
		return "", false
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return token, true
}

// Logout invalidates the token. Unknown tokens are ignored.
func (s *Sessions) Logout(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Valid reports whether the token belongs to a live session. Expired
// tokens are removed as they are seen.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// CheckDeletePassword validates the bulk-delete password.
func (s *Sessions) CheckDeletePassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.DeletePassword)) == 1
}

// Cookie builds the session cookie for a token. A zero max age yields a
// session-scoped cookie; a negative one clears it.
func Cookie(token string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
	} else if maxAge < 0 {
		c.MaxAge = -1
	}
	return c
}

// FromRequest extracts the session token from the request cookie, or ""
// when absent.
func FromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Require wraps a handler and rejects requests without a live session.
func (s *Sessions) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Valid(FromRequest(r)) {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
