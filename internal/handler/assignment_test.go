package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipelms/ipelms/internal/auth"
	"github.com/ipelms/ipelms/internal/model"
	"github.com/ipelms/ipelms/internal/queue"
	"github.com/ipelms/ipelms/internal/repository"
	"github.com/ipelms/ipelms/internal/session"
)

// fakeAssignmentStore holds submissions by id and records grading writes.
type fakeAssignmentStore struct {
	submissions map[uint64]model.Submission
	gradeCalls  int
	lastGrade   *float64
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{submissions: map[uint64]model.Submission{}}
}

func (f *fakeAssignmentStore) Create(ctx context.Context, courseID uint64, title, description string, createdBy uint64) (uint64, error) {
	return 0, nil
}

func (f *fakeAssignmentStore) GetByID(ctx context.Context, id uint64) (model.Assignment, error) {
	return model.Assignment{}, repository.ErrNotFound
}

func (f *fakeAssignmentStore) GetDetail(ctx context.Context, id uint64) (model.Assignment, error) {
	return model.Assignment{}, repository.ErrNotFound
}

func (f *fakeAssignmentStore) ListByCourse(ctx context.Context, courseID uint64) ([]model.Assignment, error) {
	return nil, nil
}

func (f *fakeAssignmentStore) GetSubmission(ctx context.Context, assignmentID, studentID uint64) (model.Submission, error) {
	return model.Submission{}, repository.ErrNotFound
}

func (f *fakeAssignmentStore) GetSubmissionByID(ctx context.Context, submissionID uint64) (model.Submission, error) {
	s, ok := f.submissions[submissionID]
	if !ok {
		return model.Submission{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeAssignmentStore) ListSubmissions(ctx context.Context, assignmentID uint64) ([]model.Submission, error) {
	return nil, nil
}

func (f *fakeAssignmentStore) UpsertSubmission(ctx context.Context, assignmentID, studentID uint64, text, relPath *string) error {
	return nil
}

func (f *fakeAssignmentStore) Grade(ctx context.Context, submissionID uint64, grade *float64, feedback *string) error {
	f.gradeCalls++
	f.lastGrade = grade
	return nil
}

func (f *fakeAssignmentStore) GradeReport(ctx context.Context, courseID, studentID uint64) ([]model.GradeRow, error) {
	return nil, nil
}

func TestGradeWithoutSubmissionWarnsAndWritesNothing(t *testing.T) {
	e := echo.New()
	store := session.NewMemoryStore(time.Hour)
	courses := newFakeCourseStore()
	courses.addCourse(7, "Databases", 1)
	assignments := newFakeAssignmentStore()
	events := &fakeEvents{}
	h := NewAssignmentHandler(NewRenderer(store, "LMS"), courses, assignments, nil, events)

	instructor := auth.Identity{ID: 1, Name: "Ana"}
	c, rec := postAs(t, e, store, instructor, "/submissions/99/grade", map[string]string{"grade": "80"})
	c.SetParamNames("submission_id")
	c.SetParamValues("99")
	require.NoError(t, h.Grade(c))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/courses", rec.Header().Get(echo.HeaderLocation))
	assert.Zero(t, assignments.gradeCalls)
	assert.Empty(t, events.published)
	flashes := popFlashes(t, store, c)
	require.Len(t, flashes, 1)
	assert.Equal(t, "warning", flashes[0].Level)
}

func TestGradeRecordsScoreAndEvent(t *testing.T) {
	e := echo.New()
	store := session.NewMemoryStore(time.Hour)
	courses := newFakeCourseStore()
	courses.addCourse(7, "Databases", 1)
	assignments := newFakeAssignmentStore()
	assignments.submissions[9] = model.Submission{ID: 9, AssignmentID: 4, StudentID: 2, CourseID: 7}
	events := &fakeEvents{}
	h := NewAssignmentHandler(NewRenderer(store, "LMS"), courses, assignments, nil, events)

	instructor := auth.Identity{ID: 1, Name: "Ana"}
	c, rec := postAs(t, e, store, instructor, "/submissions/9/grade", map[string]string{
		"grade":    "88.5",
		"feedback": "solid",
	})
	c.SetParamNames("submission_id")
	c.SetParamValues("9")
	require.NoError(t, h.Grade(c))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/assignments/4", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, 1, assignments.gradeCalls)
	require.NotNil(t, assignments.lastGrade)
	assert.InDelta(t, 88.5, *assignments.lastGrade, 0.001)
	require.Len(t, events.published, 1)
	assert.Equal(t, queue.KindGradePosted, events.published[0].Kind)
	assert.Equal(t, uint64(7), events.published[0].CourseID)
}

func TestGradeRejectsOutOfRangeScore(t *testing.T) {
	e := echo.New()
	store := session.NewMemoryStore(time.Hour)
	courses := newFakeCourseStore()
	courses.addCourse(7, "Databases", 1)
	assignments := newFakeAssignmentStore()
	assignments.submissions[9] = model.Submission{ID: 9, AssignmentID: 4, StudentID: 2, CourseID: 7}
	events := &fakeEvents{}
	h := NewAssignmentHandler(NewRenderer(store, "LMS"), courses, assignments, nil, events)

	c, rec := postAs(t, e, store, auth.Identity{ID: 1, Name: "Ana"}, "/submissions/9/grade", map[string]string{"grade": "140"})
	c.SetParamNames("submission_id")
	c.SetParamValues("9")
	require.NoError(t, h.Grade(c))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, assignments.gradeCalls)
	assert.Empty(t, events.published)
	flashes := popFlashes(t, store, c)
	require.Len(t, flashes, 1)
	assert.Equal(t, "danger", flashes[0].Level)
}
