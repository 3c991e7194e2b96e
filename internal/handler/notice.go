package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/auth"
	mw "github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/repository"
)

// NoticeHandler serves course notice pages.
type NoticeHandler struct {
	renderer
	Courses CourseStore
	Notices NoticeStore
}

func NewNoticeHandler(r renderer, courses CourseStore, notices NoticeStore) *NoticeHandler {
	return &NoticeHandler{renderer: r, Courses: courses, Notices: notices}
}

func noticeID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("notice_id"), 10, 64)
}

// NewForm renders the notice creation page. Instructors only.
func (h *NoticeHandler) NewForm(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	course, ok, err := h.instructorCourse(c, h.Courses, id)
	if !ok {
		return err
	}
	return h.render(c, "notices/new", pageData{"Course": course})
}

// Create posts a notice to a course.
func (h *NoticeHandler) Create(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	if _, ok, err := h.instructorCourse(c, h.Courses, id); !ok {
		return err
	}

	title := strings.TrimSpace(c.FormValue("title"))
	body := strings.TrimSpace(c.FormValue("body"))
	if len(title) < 3 {
		return h.flashRedirect(c, "danger", "Title is too short.", fmt.Sprintf("/notices/new/%d", id))
	}
	if body == "" {
		return h.flashRedirect(c, "danger", "Body is required.", fmt.Sprintf("/notices/new/%d", id))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Notices.Create(ctx, id, title, body, mw.CurrentIdentity(c).ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "creating notice failed")
	}
	h.flash(c, "success", "Notice posted.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d", id))
}

// Detail shows one notice to instructors and enrolled members.
func (h *NoticeHandler) Detail(c echo.Context) error {
	id, err := noticeID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Notice not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	notice, err := h.Notices.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Notice not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading notice failed")
	}

	canView, err := auth.CanViewContent(ctx, h.Courses, notice.CourseID, mw.CurrentIdentity(c).ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !canView {
		return h.flashRedirect(c, "danger", "You do not have access to this notice.",
			fmt.Sprintf("/courses/%d", notice.CourseID))
	}
	return h.render(c, "notices/detail", pageData{"Notice": notice})
}
