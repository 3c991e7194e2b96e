package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ipelms/ipelms/internal/model"
)

type NoticeRepo struct{ DB *sql.DB }

func NewNoticeRepo(db *sql.DB) *NoticeRepo { return &NoticeRepo{DB: db} }

// Create inserts a notice and returns its ID.
func (r *NoticeRepo) Create(ctx context.Context, courseID uint64, title, body string, createdBy uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notices (course_id, title, body, created_by) VALUES (?,?,?,?)",
		courseID, title, body, createdBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a notice joined with its course title and code.
func (r *NoticeRepo) GetByID(ctx context.Context, id uint64) (model.Notice, error) {
	var n model.Notice
	err := r.DB.QueryRowContext(ctx, `
		SELECT n.id, n.course_id, n.title, n.body, n.created_by, n.created_at, c.title, c.code
		FROM notices n
		JOIN courses c ON c.id = n.course_id
		WHERE n.id = ? LIMIT 1`,
		id).Scan(&n.ID, &n.CourseID, &n.Title, &n.Body, &n.CreatedBy, &n.CreatedAt, &n.CourseTitle, &n.CourseCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notice{}, ErrNotFound
	}
	return n, err
}

// ListByCourse returns a course's notices newest first.
func (r *NoticeRepo) ListByCourse(ctx context.Context, courseID uint64) ([]model.Notice, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, course_id, title, body, created_by, created_at
		FROM notices
		WHERE course_id = ?
		ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notice
	for rows.Next() {
		var n model.Notice
		if err := rows.Scan(&n.ID, &n.CourseID, &n.Title, &n.Body, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
