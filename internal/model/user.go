package model

import "time"

// User mirrors the 'users' table. Role is informational only: content
// rights come from the per-course instructor and member edges, not from
// this field.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email (stored lower-cased)
	PasswordHash string    // users.password_hash (bcrypt)
	Role         string    // users.role ("student" by default)
	CreatedAt    time.Time // users.created_at
}
