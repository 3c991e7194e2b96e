package handler

import (
	"context"

	"github.com/ipelms/ipelms/internal/model"
	"github.com/ipelms/ipelms/internal/queue"
)

// The handlers talk to storage through small interfaces so tests can swap
// in in-memory fakes. The repository package provides the real
// implementations.

// CourseStore is the course catalog plus the membership edges. It supersets
// auth.MembershipSource, so a CourseStore can be handed to the
// authorization predicates directly.
type CourseStore interface {
	Create(ctx context.Context, title, description, code string, createdBy uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	Instructors(ctx context.Context, courseID uint64) ([]model.Instructor, error)
	MemberCount(ctx context.Context, courseID uint64) (int, error)
	IsInstructor(ctx context.Context, courseID, userID uint64) (bool, error)
	IsMember(ctx context.Context, courseID, userID uint64) (bool, error)
	AddMember(ctx context.Context, courseID, userID uint64) error
	RemoveMember(ctx context.Context, courseID, userID uint64) error
}

// LessonStore covers lesson rows and their attachment pointer.
type LessonStore interface {
	Create(ctx context.Context, courseID uint64, title, content string, createdBy uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Lesson, error)
	ListByCourse(ctx context.Context, courseID uint64) ([]model.Lesson, error)
	Update(ctx context.Context, id uint64, title, content string) error
	SetAttachment(ctx context.Context, id uint64, relPath string) error
	Delete(ctx context.Context, id uint64) error
}

// NoticeStore covers course notices.
type NoticeStore interface {
	Create(ctx context.Context, courseID uint64, title, body string, createdBy uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Notice, error)
	ListByCourse(ctx context.Context, courseID uint64) ([]model.Notice, error)
}

// AssignmentStore covers assignments, submissions and grading.
type AssignmentStore interface {
	Create(ctx context.Context, courseID uint64, title, description string, createdBy uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Assignment, error)
	GetDetail(ctx context.Context, id uint64) (model.Assignment, error)
	ListByCourse(ctx context.Context, courseID uint64) ([]model.Assignment, error)
	GetSubmission(ctx context.Context, assignmentID, studentID uint64) (model.Submission, error)
	GetSubmissionByID(ctx context.Context, submissionID uint64) (model.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID uint64) ([]model.Submission, error)
	UpsertSubmission(ctx context.Context, assignmentID, studentID uint64, text, relPath *string) error
	Grade(ctx context.Context, submissionID uint64, grade *float64, feedback *string) error
	GradeReport(ctx context.Context, courseID, studentID uint64) ([]model.GradeRow, error)
}

// EventPublisher emits course activity events. eventpub.Publisher is the
// real one; publish failures are ignored by the handlers, the event stream
// is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.CourseEvent) error
}
