package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/auth"
	mw "github.com/ipelms/ipelms/internal/middleware"
	"github.com/ipelms/ipelms/internal/model"
	"github.com/ipelms/ipelms/internal/queue"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/service/eventpub"
	"github.com/ipelms/ipelms/internal/upload"
)

// AssignmentHandler serves assignment pages, submission upload and grading.
type AssignmentHandler struct {
	renderer
	Courses     CourseStore
	Assignments AssignmentStore
	Uploads     *upload.Store
	Events      EventPublisher
}

func NewAssignmentHandler(r renderer, courses CourseStore, assignments AssignmentStore, uploads *upload.Store, events EventPublisher) *AssignmentHandler {
	return &AssignmentHandler{renderer: r, Courses: courses, Assignments: assignments, Uploads: uploads, Events: events}
}

func assignmentID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("assignment_id"), 10, 64)
}

func submissionID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("submission_id"), 10, 64)
}

// NewForm renders the assignment creation page. Instructors only.
func (h *AssignmentHandler) NewForm(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	course, ok, err := h.instructorCourse(c, h.Courses, id)
	if !ok {
		return err
	}
	return h.render(c, "assignments/new", pageData{"Course": course})
}

// Create adds an assignment to a course.
func (h *AssignmentHandler) Create(c echo.Context) error {
	id, err := courseID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Course not found.", "/courses")
	}
	if _, ok, err := h.instructorCourse(c, h.Courses, id); !ok {
		return err
	}

	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	if len(title) < 3 {
		return h.flashRedirect(c, "danger", "Title is too short.", fmt.Sprintf("/assignments/new/%d", id))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	aid, err := h.Assignments.Create(ctx, id, title, description, mw.CurrentIdentity(c).ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "creating assignment failed")
	}
	h.flash(c, "success", "Assignment created.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/assignments/%d", aid))
}

// Detail shows an assignment. Members see their own submission and its
// grade; instructors see the full submission list instead.
func (h *AssignmentHandler) Detail(c echo.Context) error {
	id, err := assignmentID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Assignment not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	assignment, err := h.Assignments.GetDetail(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Assignment not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading assignment failed")
	}

	ident := mw.CurrentIdentity(c)
	canView, err := auth.CanViewContent(ctx, h.Courses, assignment.CourseID, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !canView {
		return h.flashRedirect(c, "danger", "You do not have access to this assignment.",
			fmt.Sprintf("/courses/%d", assignment.CourseID))
	}

	isInstr, err := h.Courses.IsInstructor(ctx, assignment.CourseID, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}

	data := pageData{"Assignment": assignment, "IsInstructor": isInstr}
	if isInstr {
		subs, err := h.Assignments.ListSubmissions(ctx, id)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "loading submissions failed")
		}
		data["Submissions"] = subs
	} else {
		sub, err := h.Assignments.GetSubmission(ctx, id, ident.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// No submission yet; the template shows the submit form.
		case err != nil:
			return echo.NewHTTPError(http.StatusInternalServerError, "loading submission failed")
		default:
			data["MySubmission"] = sub
		}
	}
	return h.render(c, "assignments/detail", data)
}

// Submit records or replaces the caller's submission. A student has one
// submission per assignment; re-submitting overwrites text and, when a new
// file is sent, the attachment. A previously stored file is kept when the
// form carries no file.
func (h *AssignmentHandler) Submit(c echo.Context) error {
	id, err := assignmentID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Assignment not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	assignment, err := h.Assignments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "danger", "Assignment not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading assignment failed")
	}

	ident := mw.CurrentIdentity(c)
	isMember, err := h.Courses.IsMember(ctx, assignment.CourseID, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !isMember {
		return h.flashRedirect(c, "danger", "Only enrolled members can submit.",
			fmt.Sprintf("/courses/%d", assignment.CourseID))
	}

	text := strings.TrimSpace(c.FormValue("text"))
	fh := formFile(c, "attachment")
	if text == "" && fh == nil {
		return h.flashRedirect(c, "warning", "Submit some text or a file.",
			fmt.Sprintf("/assignments/%d", id))
	}

	var oldPath string
	if prev, err := h.Assignments.GetSubmission(ctx, id, ident.ID); err == nil && prev.AttachmentPath.Valid {
		oldPath = prev.AttachmentPath.String
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading submission failed")
	}

	var relPath *string
	if fh != nil {
		sanitized := upload.SanitizeFilename(fh.Filename)
		if !upload.AllowedExtension(sanitized) {
			return h.flashRedirect(c, "danger", "File extension not allowed.",
				fmt.Sprintf("/assignments/%d", id))
		}
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "reading upload failed")
		}
		rel, err := h.Uploads.Save(assignment.CourseID, upload.KindAssignments,
			upload.SubmissionFileName(id, ident.ID, sanitized), src)
		src.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "storing attachment failed")
		}
		relPath = &rel
	}

	var textPtr *string
	if text != "" {
		textPtr = &text
	}
	if err := h.Assignments.UpsertSubmission(ctx, id, ident.ID, textPtr, relPath); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "saving submission failed")
	}
	if relPath != nil && oldPath != "" && oldPath != *relPath {
		h.Uploads.Remove(oldPath)
	}

	ev := eventpub.NewCourseEvent(queue.KindSubmissionReceived, assignment.CourseID, ident.ID, id)
	_ = h.Events.Publish(ctx, ev)

	h.flash(c, "success", "Submission received.")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/assignments/%d", id))
}

// Grade records a grade and feedback on a submission. Instructors only.
// An empty grade field clears the numeric grade but keeps the feedback.
func (h *AssignmentHandler) Grade(c echo.Context) error {
	id, err := submissionID(c)
	if err != nil {
		return h.flashRedirect(c, "danger", "Submission not found.", "/courses")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sub, err := h.Assignments.GetSubmissionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return h.flashRedirect(c, "warning", "Submission not found.", "/courses")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading submission failed")
	}
	if _, ok, err := h.instructorCourse(c, h.Courses, sub.CourseID); !ok {
		return err
	}

	back := fmt.Sprintf("/assignments/%d", sub.AssignmentID)

	var grade *float64
	if raw := strings.TrimSpace(c.FormValue("grade")); raw != "" {
		g, err := strconv.ParseFloat(raw, 64)
		if err != nil || g < 0 || g > 100 {
			return h.flashRedirect(c, "danger", "Grade must be a number between 0 and 100.", back)
		}
		grade = &g
	}
	var feedback *string
	if fb := strings.TrimSpace(c.FormValue("feedback")); fb != "" {
		feedback = &fb
	}

	if err := h.Assignments.Grade(ctx, id, grade, feedback); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "saving grade failed")
	}

	ev := eventpub.NewCourseEvent(queue.KindGradePosted, sub.CourseID, mw.CurrentIdentity(c).ID, id)
	_ = h.Events.Publish(ctx, ev)

	h.flash(c, "success", "Grade saved.")
	return c.Redirect(http.StatusSeeOther, back)
}

// Grades renders the caller's grade report for a course: one row per
// assignment with their submission state and grade, plus the average of
// the graded ones.
func (h *AssignmentHandler) Grades(c echo.Context) error {
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

	ident := mw.CurrentIdentity(c)
	canView, err := auth.CanViewContent(ctx, h.Courses, id, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !canView {
		return h.flashRedirect(c, "danger", "You do not have access to this course.",
			fmt.Sprintf("/courses/%d", id))
	}

	rows, err := h.Assignments.GradeReport(ctx, id, ident.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading grades failed")
	}
	return h.render(c, "assignments/grades", pageData{
		"Course":  course,
		"Rows":    rows,
		"Average": gradeAverage(rows),
	})
}

// gradeAverage returns the mean of the graded rows, or nil when nothing
// has been graded yet.
func gradeAverage(rows []model.GradeRow) *float64 {
	var sum float64
	var n int
	for _, r := range rows {
		if r.Grade.Valid {
			sum += r.Grade.Float64
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// DownloadSubmission streams a submission attachment to the submitter or
// a course instructor. Like lesson downloads this endpoint answers hard
// statuses, never a redirect.
func (h *AssignmentHandler) DownloadSubmission(c echo.Context) error {
	id, err := submissionID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sub, err := h.Assignments.GetSubmissionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading submission failed")
	}

	allowed, err := auth.CanDownloadSubmission(ctx, h.Courses, sub.CourseID, sub.StudentID, mw.CurrentIdentity(c).ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "authorization check failed")
	}
	if !allowed {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	if !sub.AttachmentPath.Valid {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	abs, err := h.Uploads.Resolve(sub.AttachmentPath.String)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if _, err := os.Stat(abs); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.Attachment(abs, path.Base(sub.AttachmentPath.String))
}
