package model

import (
	"database/sql"
	"time"
)

// Assignment mirrors the 'assignments' table.
type Assignment struct {
	ID          uint64    // assignments.id
	CourseID    uint64    // assignments.course_id
	Title       string    // assignments.title
	Description string    // assignments.description
	CreatedBy   uint64    // assignments.created_by
	CreatedAt   time.Time // assignments.created_at
	CourseTitle string    // joined courses.title (detail view)
	CourseCode  string    // joined courses.code (detail view)
}

// Submission mirrors the 'submissions' table. A student has at most one
// submission per assignment; re-submitting updates the existing row
// (last write wins, no optimistic concurrency check).
type Submission struct {
	ID             uint64          // submissions.id
	AssignmentID   uint64          // submissions.assignment_id
	StudentID      uint64          // submissions.student_id
	Text           sql.NullString  // submissions.text (nullable)
	AttachmentPath sql.NullString  // submissions.attachment_path (nullable)
	Grade          sql.NullFloat64 // submissions.grade (nullable decimal score)
	Feedback       sql.NullString  // submissions.feedback (nullable)
	SubmittedAt    time.Time       // submissions.submitted_at
	GradedAt       sql.NullTime    // submissions.graded_at
	StudentName    string          // joined users.name (instructor listing)
	StudentEmail   string          // joined users.email (instructor listing)
	CourseID       uint64          // joined assignments.course_id (download checks)
}

// GradeRow is one line of a member's grade report: every assignment of the
// course left-joined with that member's submission, if any.
type GradeRow struct {
	AssignmentID uint64          // assignments.id
	Title        string          // assignments.title
	Grade        sql.NullFloat64 // submissions.grade
	Feedback     sql.NullString  // submissions.feedback
	SubmittedAt  sql.NullTime    // submissions.submitted_at
	GradedAt     sql.NullTime    // submissions.graded_at
}
