package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ipelms/ipelms/internal/model"
)

type LessonRepo struct{ DB *sql.DB }

func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{DB: db} }

// Create inserts a lesson without an attachment and returns its ID. The
// attachment path, if any, is set afterwards once the file is on disk.
func (r *LessonRepo) Create(ctx context.Context, courseID uint64, title, content string, createdBy uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO lessons (course_id, title, content, created_by) VALUES (?,?,?,?)",
		courseID, title, content, createdBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a lesson by id.
func (r *LessonRepo) GetByID(ctx context.Context, id uint64) (model.Lesson, error) {
	var l model.Lesson
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,course_id,title,content,attachment_path,created_by,created_at FROM lessons WHERE id=? LIMIT 1",
		id).Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.AttachmentPath, &l.CreatedBy, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lesson{}, ErrNotFound
	}
	return l, err
}

// ListByCourse returns a course's lessons newest first.
func (r *LessonRepo) ListByCourse(ctx context.Context, courseID uint64) ([]model.Lesson, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, course_id, title, content, attachment_path, created_by, created_at
		FROM lessons
		WHERE course_id = ?
		ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Lesson
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.AttachmentPath, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Update replaces a lesson's title and content.
func (r *LessonRepo) Update(ctx context.Context, id uint64, title, content string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE lessons SET title=?, content=? WHERE id=?", title, content, id)
	return err
}

// SetAttachment stores the root-relative attachment path on a lesson row.
func (r *LessonRepo) SetAttachment(ctx context.Context, id uint64, relPath string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE lessons SET attachment_path=? WHERE id=?", relPath, id)
	return err
}

// Delete removes a lesson row. The caller is responsible for the attachment
// file; its removal is best effort and independent of this statement.
func (r *LessonRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM lessons WHERE id=?", id)
	return err
}
