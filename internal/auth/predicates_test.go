package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMembership answers membership lookups from fixed sets.
type fakeMembership struct {
	instructors map[uint64]bool
	members     map[uint64]bool
	err         error
}

func (f fakeMembership) IsInstructor(ctx context.Context, courseID, userID uint64) (bool, error) {
	return f.instructors[userID], f.err
}

func (f fakeMembership) IsMember(ctx context.Context, courseID, userID uint64) (bool, error) {
	return f.members[userID], f.err
}

const (
	instructorID = 1
	memberID     = 2
	outsiderID   = 3
	anonymousID  = 0
)

func testMembership() fakeMembership {
	return fakeMembership{
		instructors: map[uint64]bool{instructorID: true},
		members:     map[uint64]bool{memberID: true},
	}
}

func TestCanViewContent(t *testing.T) {
	src := testMembership()
	tests := []struct {
		name   string
		userID uint64
		want   bool
	}{
		{name: "instructor", userID: instructorID, want: true},
		{name: "member", userID: memberID, want: true},
		{name: "outsider", userID: outsiderID, want: false},
		{name: "anonymous", userID: anonymousID, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanViewContent(context.Background(), src, 10, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanManageCourse(t *testing.T) {
	src := testMembership()
	tests := []struct {
		name   string
		userID uint64
		want   bool
	}{
		{name: "instructor", userID: instructorID, want: true},
		{name: "member is not enough", userID: memberID, want: false},
		{name: "outsider", userID: outsiderID, want: false},
		{name: "anonymous", userID: anonymousID, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanManageCourse(context.Background(), src, 10, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanDownloadSubmission(t *testing.T) {
	src := testMembership()
	const submitterID = memberID
	tests := []struct {
		name   string
		userID uint64
		want   bool
	}{
		{name: "submitter downloads own file", userID: submitterID, want: true},
		{name: "instructor", userID: instructorID, want: true},
		{name: "other member", userID: outsiderID, want: false},
		{name: "anonymous", userID: anonymousID, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanDownloadSubmission(context.Background(), src, 10, submitterID, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicatesPropagateErrors(t *testing.T) {
	src := fakeMembership{err: errors.New("db down")}

	_, err := CanViewContent(context.Background(), src, 10, 5)
	assert.Error(t, err)
	_, err = CanManageCourse(context.Background(), src, 10, 5)
	assert.Error(t, err)
	_, err = CanDownloadSubmission(context.Background(), src, 10, 7, 5)
	assert.Error(t, err)
}
