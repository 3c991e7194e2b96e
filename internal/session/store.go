// Package session implements the server-side session store. The browser
// holds only an opaque session id in an HttpOnly cookie; the payload
// (user id, CSRF token, pending flash messages) lives in Redis, or in
// process memory when Redis is unavailable.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// CookieName is the cookie that carries the opaque session id.
const CookieName = "ipelms_session"

// ErrNoSession is returned when a session id does not resolve to a stored
// session, either because it expired or never existed.
var ErrNoSession = errors.New("session not found")

// Data is the server-side payload of one session. UserID is zero for
// anonymous sessions. CSRFToken is empty until EnsureCSRF is called and
// then stays fixed for the session's lifetime.
type Data struct {
	UserID    uint64
	CSRFToken string
}

// Flash is a one-shot message queued on a session and drained on the next
// rendered page.
type Flash struct {
	Level   string `json:"level"` // "success", "info", "warning", "danger"
	Message string `json:"message"`
}

// Store is the session lifecycle contract. Login flows must Delete the old
// session and Create a fresh one before calling BindUser, so a pre-login
// session id never survives authentication.
type Store interface {
	// Create allocates an empty anonymous session and returns its id.
	Create(ctx context.Context) (string, error)
	// Get returns the payload for id, or ErrNoSession.
	Get(ctx context.Context, id string) (Data, error)
	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, id string) error
	// BindUser attaches a user id to the session.
	BindUser(ctx context.Context, id string, userID uint64) error
	// EnsureCSRF returns the session's anti-forgery token, generating and
	// storing one on first call. Repeated calls return the same token.
	EnsureCSRF(ctx context.Context, id string) (string, error)
	// AddFlash queues a flash message on the session.
	AddFlash(ctx context.Context, id string, f Flash) error
	// PopFlashes returns and clears all queued flash messages.
	PopFlashes(ctx context.Context, id string) ([]Flash, error)
}

// DefaultTTL bounds the idle lifetime of a session when the caller does not
// configure one.
const DefaultTTL = 24 * time.Hour

// newToken returns a 32-byte URL-safe random string, used for CSRF tokens.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
