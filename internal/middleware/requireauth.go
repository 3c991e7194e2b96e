package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/session"
)

// RequireAuth short-circuits anonymous requests with a redirect to the
// login page, preserving the originally requested path in the "next" query
// parameter so login can forward back to it.
func RequireAuth(store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CurrentIdentity(c).Anonymous() {
				return next(c)
			}
			if sid := SessionID(c); sid != "" {
				_ = store.AddFlash(c.Request().Context(), sid, session.Flash{
					Level: "warning", Message: "You need to be signed in.",
				})
			}
			target := "/auth/login?next=" + url.QueryEscape(c.Request().URL.Path)
			return c.Redirect(http.StatusSeeOther, target)
		}
	}
}
