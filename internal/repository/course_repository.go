package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ipelms/ipelms/internal/model"
)

type CourseRepo struct{ DB *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{DB: db} }

// Create inserts a course and registers its creator as the first
// instructor. The two statements are not wrapped in a transaction; each
// commits on its own, matching the rest of the write paths.
func (r *CourseRepo) Create(ctx context.Context, title, description, code string, createdBy uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO courses (title, description, code, created_by) VALUES (?,?,?,?)",
		title, description, code, createdBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrCodeExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO course_instructors (course_id, user_id) VALUES (?,?)",
		id, createdBy)
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a course by id.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	var c model.Course
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,title,description,code,created_by,created_at FROM courses WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.Title, &c.Description, &c.Code, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Course{}, ErrNotFound
	}
	return c, err
}

// CodeExists reports whether a course code is already taken.
func (r *CourseRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM courses WHERE code=? LIMIT 1", code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// List returns all courses newest first, joined with the creator's name.
func (r *CourseRepo) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.title, c.description, c.code, c.created_by, c.created_at, u.name
		FROM courses c
		JOIN users u ON u.id = c.created_by
		ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Code, &c.CreatedBy, &c.CreatedAt, &c.OwnerName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Instructors returns the instructor roster of a course ordered by name.
func (r *CourseRepo) Instructors(ctx context.Context, courseID uint64) ([]model.Instructor, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM course_instructors ci
		JOIN users u ON u.id = ci.user_id
		WHERE ci.course_id = ?
		ORDER BY u.name`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Instructor
	for rows.Next() {
		var in model.Instructor
		if err := rows.Scan(&in.ID, &in.Name, &in.Email); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// MemberCount returns the number of enrolled members.
func (r *CourseRepo) MemberCount(ctx context.Context, courseID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM course_members WHERE course_id=?", courseID).Scan(&n)
	return n, err
}

// IsInstructor reports whether the (course, user) instructor edge exists.
// Queried fresh on every call: edges can change between requests, so the
// result must never be cached.
func (r *CourseRepo) IsInstructor(ctx context.Context, courseID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM course_instructors WHERE course_id=? AND user_id=? LIMIT 1",
		courseID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// IsMember reports whether the (course, user) member edge exists. Like
// IsInstructor, it is a fresh lookup on every call.
func (r *CourseRepo) IsMember(ctx context.Context, courseID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM course_members WHERE course_id=? AND user_id=? LIMIT 1",
		courseID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// AddMember inserts the member edge. INSERT IGNORE keeps the call
// idempotent at the SQL level; callers check IsMember first to tell the
// user they were already enrolled.
func (r *CourseRepo) AddMember(ctx context.Context, courseID, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO course_members (course_id, user_id) VALUES (?,?)",
		courseID, userID)
	return err
}

// RemoveMember deletes the member edge.
func (r *CourseRepo) RemoveMember(ctx context.Context, courseID, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM course_members WHERE course_id=? AND user_id=?",
		courseID, userID)
	return err
}
