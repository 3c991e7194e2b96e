package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ipelms/ipelms/internal/model"
)

type AssignmentRepo struct{ DB *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{DB: db} }

// Create inserts an assignment and returns its ID.
func (r *AssignmentRepo) Create(ctx context.Context, courseID uint64, title, description string, createdBy uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO assignments (course_id, title, description, created_by) VALUES (?,?,?,?)",
		courseID, title, description, createdBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an assignment by id.
func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (model.Assignment, error) {
	var a model.Assignment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,course_id,title,description,created_by,created_at FROM assignments WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.CreatedBy, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Assignment{}, ErrNotFound
	}
	return a, err
}

// GetDetail fetches an assignment joined with its course title and code.
func (r *AssignmentRepo) GetDetail(ctx context.Context, id uint64) (model.Assignment, error) {
	var a model.Assignment
	err := r.DB.QueryRowContext(ctx, `
		SELECT a.id, a.course_id, a.title, a.description, a.created_by, a.created_at, c.title, c.code
		FROM assignments a
		JOIN courses c ON c.id = a.course_id
		WHERE a.id = ? LIMIT 1`,
		id).Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.CreatedBy, &a.CreatedAt, &a.CourseTitle, &a.CourseCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Assignment{}, ErrNotFound
	}
	return a, err
}

// ListByCourse returns a course's assignments newest first.
func (r *AssignmentRepo) ListByCourse(ctx context.Context, courseID uint64) ([]model.Assignment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, course_id, title, description, created_by, created_at
		FROM assignments
		WHERE course_id = ?
		ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetSubmission fetches the student's submission for an assignment.
func (r *AssignmentRepo) GetSubmission(ctx context.Context, assignmentID, studentID uint64) (model.Submission, error) {
	var s model.Submission
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, assignment_id, student_id, text, attachment_path, grade, feedback, submitted_at, graded_at
		FROM submissions
		WHERE assignment_id = ? AND student_id = ? LIMIT 1`,
		assignmentID, studentID).Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Text,
		&s.AttachmentPath, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	return s, err
}

// GetSubmissionByID fetches a submission joined with its assignment's
// course id, which download handlers need for the instructor check.
func (r *AssignmentRepo) GetSubmissionByID(ctx context.Context, submissionID uint64) (model.Submission, error) {
	var s model.Submission
	err := r.DB.QueryRowContext(ctx, `
		SELECT s.id, s.assignment_id, s.student_id, s.text, s.attachment_path,
		       s.grade, s.feedback, s.submitted_at, s.graded_at, a.course_id
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE s.id = ? LIMIT 1`,
		submissionID).Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Text,
		&s.AttachmentPath, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt, &s.CourseID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	return s, err
}

// ListSubmissions returns all submissions for an assignment, newest first,
// joined with each student's display fields.
func (r *AssignmentRepo) ListSubmissions(ctx context.Context, assignmentID uint64) ([]model.Submission, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT s.id, s.assignment_id, s.student_id, s.text, s.attachment_path,
		       s.grade, s.feedback, s.submitted_at, s.graded_at, u.name, u.email
		FROM submissions s
		JOIN users u ON u.id = s.student_id
		WHERE s.assignment_id = ?
		ORDER BY s.submitted_at DESC`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Text, &s.AttachmentPath,
			&s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt, &s.StudentName, &s.StudentEmail); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertSubmission creates the student's submission or updates the existing
// row. A nil attachment keeps the stored file via COALESCE, so a
// re-submission without a new file does not drop the previous upload; the
// text column is always overwritten, a nil text clears it.
func (r *AssignmentRepo) UpsertSubmission(ctx context.Context, assignmentID, studentID uint64, text, relPath *string) error {
	existing, err := r.GetSubmission(ctx, assignmentID, studentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO submissions (assignment_id, student_id, text, attachment_path) VALUES (?,?,?,?)",
			assignmentID, studentID, text, relPath)
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
		UPDATE submissions
		SET text = ?, attachment_path = COALESCE(?, attachment_path), submitted_at = NOW()
		WHERE id = ?`,
		text, relPath, existing.ID)
	return err
}

// Grade records a score and feedback on an existing submission. Both values
// may be nil; graded_at always advances (last write wins).
func (r *AssignmentRepo) Grade(ctx context.Context, submissionID uint64, grade *float64, feedback *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE submissions SET grade=?, feedback=?, graded_at=NOW() WHERE id=?",
		grade, feedback, submissionID)
	return err
}

// GradeReport returns one row per assignment of the course left-joined with
// the student's submission, ordered by assignment creation.
func (r *AssignmentRepo) GradeReport(ctx context.Context, courseID, studentID uint64) ([]model.GradeRow, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.title, s.grade, s.feedback, s.submitted_at, s.graded_at
		FROM assignments a
		LEFT JOIN submissions s ON s.assignment_id = a.id AND s.student_id = ?
		WHERE a.course_id = ?
		ORDER BY a.created_at`, studentID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GradeRow
	for rows.Next() {
		var g model.GradeRow
		if err := rows.Scan(&g.AssignmentID, &g.Title, &g.Grade, &g.Feedback, &g.SubmittedAt, &g.GradedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
