package model

import (
	"database/sql"
	"time"
)

// Lesson mirrors the 'lessons' table. AttachmentPath, when valid, is always
// a path relative to the configured upload root, never absolute.
type Lesson struct {
	ID             uint64         // lessons.id
	CourseID       uint64         // lessons.course_id
	Title          string         // lessons.title
	Content        string         // lessons.content
	AttachmentPath sql.NullString // lessons.attachment_path (nullable)
	CreatedBy      uint64         // lessons.created_by
	CreatedAt      time.Time      // lessons.created_at
}
