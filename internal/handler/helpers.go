// Package handler implements the page handlers. Authorization and
// validation failures are handled at the edge of each operation and turned
// into user-facing redirects with flash notices; only the download
// endpoints answer hard 403/404 statuses.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	mw "github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/model"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/session"
)

const dbTimeout = 5 * time.Second

// reqCtx derives a bounded context for database work from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pageData is the context handed to templates. render fills the shared
// keys (Identity, CSRFToken, Flashes, SiteName) on top of page-specific
// entries.
type pageData map[string]interface{}

// renderer bundles what every page handler needs to produce a response.
type renderer struct {
	Sessions session.Store
	SiteName string
}

// NewRenderer builds the shared page-rendering dependencies handed to
// every handler constructor.
func NewRenderer(sessions session.Store, siteName string) renderer {
	return renderer{Sessions: sessions, SiteName: siteName}
}

// render executes a template with the shared page context merged in.
// Flash messages are drained here, so they show exactly once.
func (r renderer) render(c echo.Context, name string, data pageData) error {
	if data == nil {
		data = pageData{}
	}
	ctx := c.Request().Context()
	sid := mw.SessionID(c)
	if sid != "" {
		if tok, err := r.Sessions.EnsureCSRF(ctx, sid); err == nil {
			data["CSRFToken"] = tok
		}
		if flashes, err := r.Sessions.PopFlashes(ctx, sid); err == nil {
			data["Flashes"] = flashes
		}
	}
	data["Identity"] = mw.CurrentIdentity(c)
	data["SiteName"] = r.SiteName
	return c.Render(http.StatusOK, name, data)
}

// flash queues a one-shot notice on the current session. Failures are
// ignored: losing a notice must never fail the request that queued it.
func (r renderer) flash(c echo.Context, level, message string) {
	if sid := mw.SessionID(c); sid != "" {
		_ = r.Sessions.AddFlash(c.Request().Context(), sid, session.Flash{Level: level, Message: message})
	}
}

// flashRedirect queues a notice and redirects, the standard outcome of a
// rejected page operation.
func (r renderer) flashRedirect(c echo.Context, level, message, target string) error {
	r.flash(c, level, message)
	return c.Redirect(http.StatusSeeOther, target)
}

// instructorCourse loads a course and checks that the current user is one
// of its instructors. When the check fails the redirect-with-notice
// response is already written; callers return the error as-is and stop.
func (r renderer) instructorCourse(c echo.Context, courses CourseStore, id uint64) (model.Course, bool, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	course, err := courses.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Course{}, false, r.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	if err != nil {
		return model.Course{}, false, echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	ok, err := courses.IsInstructor(ctx, id, mw.CurrentIdentity(c).ID)
	if err != nil {
		return model.Course{}, false, echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !ok {
		return model.Course{}, false, r.flashRedirect(c, "danger",
			"Only instructors can do this.", fmt.Sprintf("/courses/%d", id))
	}
	return course, true, nil
}

// safeNext returns target if it is a local path, else the fallback. Keeps
// the post-login forward from becoming an open redirect.
func safeNext(target, fallback string) string {
	if len(target) > 0 && target[0] == '/' && (len(target) == 1 || target[1] != '/') {
		return target
	}
	return fallback
}
