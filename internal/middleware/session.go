// Package middleware contains the request pipeline stages that gate every
// handler: session resolution, authentication, CSRF validation, rate
// limiting and access logging. Each stage either passes the request on or
// short-circuits with an explicit response; handlers never re-derive what a
// stage already resolved.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/auth"
	"github.com/ipelms/ipelms/internal/model"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/session"
)

// Context keys under which the resolved session id and identity are stored.
const (
	ctxKeySessionID = "session_id"
	ctxKeyIdentity  = "identity"
)

// UserSource is the single lookup the identity stage needs. The user
// repository implements it.
type UserSource interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Resolve ensures every request owns a server-side session and resolves the
// session's user to an Identity exactly once, before any handler logic.
// Browsers without a valid session cookie get a fresh anonymous session so
// that login and registration forms can carry a CSRF token.
func Resolve(store session.Store, users UserSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			var sid string
			var data session.Data
			if cookie, err := c.Cookie(session.CookieName); err == nil && cookie.Value != "" {
				if d, err := store.Get(ctx, cookie.Value); err == nil {
					sid, data = cookie.Value, d
				} else if !errors.Is(err, session.ErrNoSession) {
					return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
				}
			}
			if sid == "" {
				fresh, err := store.Create(ctx)
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
				}
				sid = fresh
				SetSessionCookie(c, sid)
			}
			c.Set(ctxKeySessionID, sid)

			ident := auth.Identity{}
			if data.UserID != 0 {
				u, err := users.GetByID(ctx, data.UserID)
				switch {
				case err == nil:
					ident = auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
				case errors.Is(err, repository.ErrNotFound):
					// Stale session pointing at a deleted user: treat as anonymous.
				default:
					return echo.NewHTTPError(http.StatusInternalServerError, "identity lookup failed")
				}
			}
			SetIdentity(c, ident)
			return next(c)
		}
	}
}

// SetSessionCookie writes the session-id cookie. HttpOnly keeps scripts
// away from it; SameSite=Lax plus the CSRF token covers cross-site posts.
func SetSessionCookie(c echo.Context, sid string) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionID rebinds the request's session id after a login or logout
// swapped the session mid-request, so later stages see the fresh one.
func SetSessionID(c echo.Context, sid string) {
	c.Set(ctxKeySessionID, sid)
}

// SetIdentity binds the resolved identity to the request.
func SetIdentity(c echo.Context, ident auth.Identity) {
	c.Set(ctxKeyIdentity, ident)
}

// SessionID returns the request's session id resolved by Resolve.
func SessionID(c echo.Context) string {
	if v, ok := c.Get(ctxKeySessionID).(string); ok {
		return v
	}
	return ""
}

// CurrentIdentity returns the identity resolved by Resolve; the zero value
// means anonymous.
func CurrentIdentity(c echo.Context) auth.Identity {
	if v, ok := c.Get(ctxKeyIdentity).(auth.Identity); ok {
		return v
	}
	return auth.Identity{}
}
