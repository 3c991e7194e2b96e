package model

import "time"

// Notice mirrors the 'notices' table.
type Notice struct {
	ID          uint64    // notices.id
	CourseID    uint64    // notices.course_id
	Title       string    // notices.title
	Body        string    // notices.body
	CreatedBy   uint64    // notices.created_by
	CreatedAt   time.Time // notices.created_at
	CourseTitle string    // joined courses.title (detail view)
	CourseCode  string    // joined courses.code (detail view)
}
