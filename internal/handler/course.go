package handler

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	mw "github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/queue"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/service/eventpub"
)

var codeRe = regexp.MustCompile(`^[A-Z0-9-]{3,10}$`)

// CourseHandler serves the course catalog: listing, creation, detail,
// enrollment.
type CourseHandler struct {
	renderer
	Courses     CourseStore
	Lessons     LessonStore
	Notices     NoticeStore
	Assignments AssignmentStore
	Events      EventPublisher
}

func NewCourseHandler(r renderer, courses CourseStore, lessons LessonStore,
	notices NoticeStore, assignments AssignmentStore, events EventPublisher) *CourseHandler {
	return &CourseHandler{renderer: r, Courses: courses, Lessons: lessons, Notices: notices, Assignments: assignments, Events: events}
}

// courseID parses the :course_id path parameter.
func courseID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("course_id"), 10, 64)
}

// List shows all courses, newest first. Public.
func (h *CourseHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	courses, err := h.Courses.List(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "listing courses failed")
	}
	return h.render(c, "courses/list", pageData{"Courses": courses})
}

// NewForm renders the course creation page.
func (h *CourseHandler) NewForm(c echo.Context) error {
	return h.render(c, "courses/new", nil)
}

// Create inserts a course; the creator becomes its first instructor.
func (h *CourseHandler) Create(c echo.Context) error {
	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	code := strings.ToUpper(strings.TrimSpace(c.FormValue("code")))

	if len(title) < 3 {
		return h.flashRedirect(c, "danger", "Title is too short.", "/courses/new")
	}
	if !codeRe.MatchString(code) {
		return h.flashRedirect(c, "danger", "Invalid code (use A-Z, 0-9, '-', 3-10 chars).", "/courses/new")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	ident := mw.CurrentIdentity(c)
	id, err := h.Courses.Create(ctx, title, description, code, ident.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			return h.flashRedirect(c, "danger", "A course with that code already exists.", "/courses/new")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "creating course failed")
	}
	c.Logger().Infof("course created: id=%d code=%s by user_id=%d", id, code, ident.ID)
	h.flash(c, "success", "Course created.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d", id))
}

// Detail shows a course page. Basic info is public; the membership and
// instructor flags are only computed for authenticated users.
func (h *CourseHandler) Detail(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}

	instructors, err := h.Courses.Instructors(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	memberCount, err := h.Courses.MemberCount(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	lessons, err := h.Lessons.ListByCourse(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	notices, err := h.Notices.ListByCourse(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	assignments, err := h.Assignments.ListByCourse(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}

	isInstr, isMem := false, false
	if ident := mw.CurrentIdentity(c); !ident.Anonymous() {
		if isInstr, err = h.Courses.IsInstructor(ctx, id, ident.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
		}
		if isMem, err = h.Courses.IsMember(ctx, id, ident.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
		}
	}

	return h.render(c, "courses/detail", pageData{
		"Course":       course,
		"Instructors":  instructors,
		"MemberCount":  memberCount,
		"Lessons":      lessons,
		"Notices":      notices,
		"Assignments":  assignments,
		"IsInstructor": isInstr,
		"IsMember":     isMem,
	})
}

// Join enrolls the current user. Joining twice is a no-op that tells the
// user they are already enrolled, not an error.
func (h *CourseHandler) Join(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Courses.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.flashRedirect(c, "danger", "Course not found.", "/courses")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	ident := mw.CurrentIdentity(c)
	already, err := h.Courses.IsMember(ctx, id, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "join failed")
	}
	target := fmt.Sprintf("/courses/%d", id)
	if already {
		return h.flashRedirect(c, "info", "You are already enrolled in this course.", target)
	}
	if err := h.Courses.AddMember(ctx, id, ident.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "join failed")
	}
	c.Logger().Infof("enrollment: course=%d user=%d", id, ident.ID)
	_ = h.Events.Publish(ctx, eventpub.NewCourseEvent(queue.KindEnrollmentCreated, id, ident.ID, 0))
	return h.flashRedirect(c, "success", "You joined the course.", target)
}

// Leave drops the current user's membership. Leaving without being a
// member is a no-op with a warning.
func (h *CourseHandler) Leave(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Courses.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.flashRedirect(c, "danger", "Course not found.", "/courses")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "loading course failed")
	}
	ident := mw.CurrentIdentity(c)
	member, err := h.Courses.IsMember(ctx, id, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "leave failed")
	}
	target := fmt.Sprintf("/courses/%d", id)
	if !member {
		return h.flashRedirect(c, "warning", "You are not enrolled in this course.", target)
	}
	if err := h.Courses.RemoveMember(ctx, id, ident.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "leave failed")
	}
	c.Logger().Infof("left course: course=%d user=%d", id, ident.ID)
	return h.flashRedirect(c, "info", "You left the course.", target)
}
