// Package upload implements the filesystem attachment store. Files live
// under a single configured root, partitioned per course and entity kind:
//
//	<root>/courses/<course_id>/{lessons|assignments}/<generated_name>
//
// Database rows only ever hold the slash-separated path relative to the
// root; resolving a stored path back to disk fails closed unless the
// result stays inside the root.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrBadExtension is returned for files outside the extension allow-list.
var ErrBadExtension = errors.New("file extension not allowed")

// ErrTraversal is returned when a stored path resolves outside the upload
// root. Handlers surface it as a plain not-found, never as a distinct
// error the client could probe.
var ErrTraversal = errors.New("path escapes upload root")

// Kind is the entity partition an attachment belongs to.
type Kind string

const (
	KindLessons     Kind = "lessons"
	KindAssignments Kind = "assignments"
)

var allowedExt = map[string]struct{}{
	"pdf": {}, "txt": {}, "md": {}, "png": {}, "jpg": {}, "jpeg": {},
	"gif": {}, "zip": {}, "pptx": {}, "docx": {}, "csv": {},
}

// SanitizeFilename strips directory components and collapses characters
// outside [A-Za-z0-9._-] to underscores. The result never contains path
// separators and never comes back empty.
func SanitizeFilename(name string) string {
	// Client filenames may use either separator regardless of our OS.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}

// AllowedExtension reports whether the filename carries an extension from
// the allow-list, compared case-insensitively.
func AllowedExtension(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return false
	}
	_, ok := allowedExt[strings.ToLower(name[i+1:])]
	return ok
}

// LessonFileName is the deterministic stored name of a lesson attachment;
// re-uploading for the same lesson overwrites rather than accumulates.
func LessonFileName(lessonID uint64, sanitized string) string {
	return fmt.Sprintf("lesson_%d__%s", lessonID, sanitized)
}

// SubmissionFileName is the deterministic stored name of a submission
// attachment, keyed by assignment and student.
func SubmissionFileName(assignmentID, studentID uint64, sanitized string) string {
	return fmt.Sprintf("assign_%d__u_%d__%s", assignmentID, studentID, sanitized)
}

// Store writes and resolves attachments under one root directory.
type Store struct {
	root string // absolute, clean
}

// NewStore resolves root to an absolute path and creates it if needed.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs = filepath.Clean(abs)
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute upload root.
func (s *Store) Root() string { return s.root }

// Save validates the extension, creates the scope directory and writes the
// file, returning the root-relative path to persist on the database row.
// finalName must already be a sanitized, generated name.
func (s *Store) Save(courseID uint64, kind Kind, finalName string, src io.Reader) (string, error) {
	if !AllowedExtension(finalName) {
		return "", ErrBadExtension
	}
	rel := path.Join("courses", strconv.FormatUint(courseID, 10), string(kind), finalName)
	abs, err := s.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(abs)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(abs) // no partial writes left behind
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(abs)
		return "", err
	}
	return rel, nil
}

// Resolve joins a stored relative path to the root and validates that the
// result stays inside it. A stored path that was tampered with or computed
// incorrectly yields ErrTraversal, which callers treat as not-found.
func (s *Store) Resolve(rel string) (string, error) {
	if rel == "" || path.IsAbs(rel) || filepath.IsAbs(filepath.FromSlash(rel)) {
		return "", ErrTraversal
	}
	abs := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(rel)))
	if abs == s.root || !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", ErrTraversal
	}
	return abs, nil
}

// Remove deletes a superseded attachment best-effort. Failures are logged
// and swallowed: cleanup must never fail the enclosing request.
func (s *Store) Remove(rel string) {
	abs, err := s.Resolve(rel)
	if err != nil {
		log.Printf("upload: refusing to remove %q: %v", rel, err)
		return
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		log.Printf("upload: removing old attachment %q: %v", rel, err)
	}
}
