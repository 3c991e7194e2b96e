// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// Event kinds published on the course activity queue.
const (
	KindEnrollmentCreated  = "enrollment.created"
	KindSubmissionReceived = "submission.received"
	KindGradePosted        = "grade.posted"
)

// CourseEvent is published when something notable happens inside a course:
// a user enrolls, a submission arrives, a grade is posted. It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type CourseEvent struct {
	ID         string `json:"id"`   // unique event id
	Kind       string `json:"kind"` // one of the Kind* constants
	CourseID   uint64 `json:"course_id"`
	UserID     uint64 `json:"user_id"`             // acting user (enrollee, submitter, grader)
	EntityID   uint64 `json:"entity_id,omitempty"` // assignment or submission id, kind-dependent
	OccurredAt string `json:"occurred_at"`         // RFC 3339 UTC
}
