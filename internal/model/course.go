package model

import "time"

// Course is a unit of teaching that users can join as members and
// instructors can publish lessons, notices and assignments into.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – human-readable course title.
//	Description – free-form description shown on the detail page.
//	Code        – short unique course code (A-Z, 0-9, '-').
//	CreatedBy   – user who created the course; becomes its first instructor.
//	CreatedAt   – creation timestamp.
type Course struct {
	ID          uint64    // courses.id
	Title       string    // courses.title
	Description string    // courses.description
	Code        string    // courses.code
	CreatedBy   uint64    // courses.created_by
	OwnerName   string    // joined users.name of the creator (list view)
	CreatedAt   time.Time // courses.created_at
}

// Instructor is a course instructor row joined with the user's display
// fields for the course detail page.
type Instructor struct {
	ID    uint64 // users.id
	Name  string // users.name
	Email string // users.email
}
