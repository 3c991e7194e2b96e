package auth

import "context"

// MembershipSource answers the two per-course relations the authorization
// rules are built from. The course repository implements it. Lookups are
// made fresh on every request — the edges can change at any time, so
// results must never be cached across requests.
type MembershipSource interface {
	IsInstructor(ctx context.Context, courseID, userID uint64) (bool, error)
	IsMember(ctx context.Context, courseID, userID uint64) (bool, error)
}

// CanViewContent reports whether the user may open a course's lessons,
// notices and assignments: instructors and enrolled members qualify.
// Anonymous users never qualify.
func CanViewContent(ctx context.Context, src MembershipSource, courseID, userID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	ok, err := src.IsInstructor(ctx, courseID, userID)
	if err != nil || ok {
		return ok, err
	}
	return src.IsMember(ctx, courseID, userID)
}

// CanManageCourse reports whether the user may create or edit content in
// the course. Only instructors qualify; membership alone grants nothing.
func CanManageCourse(ctx context.Context, src MembershipSource, courseID, userID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return src.IsInstructor(ctx, courseID, userID)
}

// CanDownloadSubmission reports whether the user may download a student's
// submission attachment: the course's instructors and the submitting
// student themself. An enrolled member who is not the submitter is denied.
func CanDownloadSubmission(ctx context.Context, src MembershipSource, courseID, submitterID, userID uint64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	if userID == submitterID {
		return true, nil
	}
	return src.IsInstructor(ctx, courseID, userID)
}
