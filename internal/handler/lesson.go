package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/auth"
	mw "github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/upload"
)

// LessonHandler serves lesson pages and their attachments.
type LessonHandler struct {
	renderer
	Courses CourseStore
	Lessons LessonStore
	Uploads *upload.Store
}

func NewLessonHandler(r renderer, courses CourseStore, lessons LessonStore, uploads *upload.Store) *LessonHandler {
	return &LessonHandler{renderer: r, Courses: courses, Lessons: lessons, Uploads: uploads}
}

func lessonID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("lesson_id"), 10, 64)
}

// formFile returns the named upload, or nil when the field was omitted.
func formFile(c echo.Context, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Filename == "" {
		return nil
	}
	return fh
}

// NewForm renders the lesson creation page. Instructors only.
func (h *LessonHandler) NewForm(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	course, ok, err := h.instructorCourse(c, h.Courses, id)
	if !ok {
		return err
	}
	return h.render(c, "lessons/new", pageData{"Course": course})
}

// Create inserts a lesson and stores its optional attachment. The row is
// created first; if the file is then rejected the lesson stays without an
// attachment and the user is told why.
func (h *LessonHandler) Create(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	if _, ok, err := h.instructorCourse(c, h.Courses, id); !ok {
		return err
	}

	title := strings.TrimSpace(c.FormValue("title"))
	content := strings.TrimSpace(c.FormValue("content"))
	if len(title) < 3 {
		return h.flashRedirect(c, "danger", "Title is too short.", fmt.Sprintf("/lessons/new/%d", id))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	ident := mw.CurrentIdentity(c)
	lid, err := h.Lessons.Create(ctx, id, title, content, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "creating lesson failed")
	}

	if fh := formFile(c, "attachment"); fh != nil {
		rel, err := h.saveLessonFile(c, id, lid, fh)
		if err != nil {
			if errors.Is(err, upload.ErrBadExtension) {
				return h.flashRedirect(c, "danger", "File extension not allowed.", fmt.Sprintf("/lessons/new/%d", id))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "storing attachment failed")
		}
		if err := h.Lessons.SetAttachment(ctx, lid, rel); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "storing attachment failed")
		}
		c.Logger().Infof("attachment stored: lesson=%d path=%s", lid, rel)
	}

	h.flash(c, "success", "Lesson created.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d", id))
}

// saveLessonFile sanitizes and writes an uploaded lesson attachment,
// returning the root-relative path for the database row.
func (h *LessonHandler) saveLessonFile(c echo.Context, courseID, lessonID uint64, fh *multipart.FileHeader) (string, error) {
	sanitized := upload.SanitizeFilename(fh.Filename)
	if !upload.AllowedExtension(sanitized) {
		return "", upload.ErrBadExtension
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return h.Uploads.Save(courseID, upload.KindLessons, upload.LessonFileName(lessonID, sanitized), src)
}

// Detail shows a lesson to instructors and enrolled members; everyone else
// is sent back to the course page with a notice.
func (h *LessonHandler) Detail(c echo.Context) error {
	id, err := lessonID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	lesson, err := h.Lessons.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading lesson failed")
	}

	ident := mw.CurrentIdentity(c)
	canView, err := auth.CanViewContent(ctx, h.Courses, lesson.CourseID, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !canView {
		return h.flashRedirect(c, "danger", "You do not have access to this lesson.",
			fmt.Sprintf("/courses/%d", lesson.CourseID))
	}
	isInstr, err := h.Courses.IsInstructor(ctx, lesson.CourseID, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	return h.render(c, "lessons/detail", pageData{"Lesson": lesson, "IsInstructor": isInstr})
}

// EditForm renders the lesson edit page. Instructors only.
func (h *LessonHandler) EditForm(c echo.Context) error {
	id, err := lessonID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lesson, err := h.Lessons.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading lesson failed")
	}
	course, ok, err := h.instructorCourse(c, h.Courses, lesson.CourseID)
	if !ok {
		return err
	}
	return h.render(c, "lessons/edit", pageData{"Lesson": lesson, "Course": course})
}

// Edit updates a lesson and optionally replaces its attachment. The old
// file is removed only after the new one is confirmed written; cleanup
// failures are logged inside the store and never fail the request.
func (h *LessonHandler) Edit(c echo.Context) error {
	id, err := lessonID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lesson, err := h.Lessons.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading lesson failed")
	}
	if _, ok, err := h.instructorCourse(c, h.Courses, lesson.CourseID); !ok {
		return err
	}

	title := strings.TrimSpace(c.FormValue("title"))
	content := strings.TrimSpace(c.FormValue("content"))
	if len(title) < 3 {
		return h.flashRedirect(c, "danger", "Title is too short.", fmt.Sprintf("/lessons/%d/edit", id))
	}
	if err := h.Lessons.Update(ctx, id, title, content); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "updating lesson failed")
	}

	if fh := formFile(c, "attachment"); fh != nil {
		rel, err := h.saveLessonFile(c, lesson.CourseID, id, fh)
		if err != nil {
			if errors.Is(err, upload.ErrBadExtension) {
				return h.flashRedirect(c, "danger", "File extension not allowed.", fmt.Sprintf("/lessons/%d/edit", id))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "storing attachment failed")
		}
		if old := lesson.AttachmentPath; old.Valid && old.String != rel {
			h.Uploads.Remove(old.String)
		}
		if err := h.Lessons.SetAttachment(ctx, id, rel); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "storing attachment failed")
		}
		c.Logger().Infof("attachment replaced: lesson=%d path=%s", id, rel)
	}

	h.flash(c, "success", "Lesson updated.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/lessons/%d", id))
}

// Delete removes a lesson and, best effort, its attachment.
func (h *LessonHandler) Delete(c echo.Context) error {
	id, err := lessonID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lesson, err := h.Lessons.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Lesson not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading lesson failed")
	}
	if _, ok, err := h.instructorCourse(c, h.Courses, lesson.CourseID); !ok {
		return err
	}

	if lesson.AttachmentPath.Valid {
		h.Uploads.Remove(lesson.AttachmentPath.String)
	}
	if err := h.Lessons.Delete(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "deleting lesson failed")
	}
	h.flash(c, "info", "Lesson deleted.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/courses/%d", lesson.CourseID))
}

// Download streams a lesson attachment to instructors and members. Unlike
// the page views this endpoint answers hard statuses: 403 for missing
// rights, 404 for anything wrong with the file, including a stored path
// that no longer resolves inside the upload root.
func (h *LessonHandler) Download(c echo.Context) error {
	id, err := lessonID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	lesson, err := h.Lessons.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading lesson failed")
	}
	canView, err := auth.CanViewContent(ctx, h.Courses, lesson.CourseID, mw.CurrentIdentity(c).ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !canView {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	if !lesson.AttachmentPath.Valid {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	abs, err := h.Uploads.Resolve(lesson.AttachmentPath.String)
	if err != nil {
		// Tampered or mis-stored path: plain not-found, never a distinct error.
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if _, err := os.Stat(abs); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.Attachment(abs, path.Base(lesson.AttachmentPath.String))
}
