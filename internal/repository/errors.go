// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow handlers to distinguish between
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a looked-up row does not exist. Handlers
// translate it into a flash-and-redirect for page views and a hard 404 for
// download endpoints.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrCodeExists is returned when creating a course with a code that is
// already in use.
var ErrCodeExists = errors.New("course code already exists")
