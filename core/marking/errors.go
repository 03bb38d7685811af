package marking

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// missing records
	ErrDraftNotFound      = errors.New("invalid draft")
	ErrSubmissionNotFound = errors.New("invalid submission")
	ErrActivityNotFound   = errors.New("invalid activity")
	ErrStudentNotFound    = errors.New("invalid user from submission")
	ErrPageNotFound       = errors.New("invalid page")
	ErrCommentNotFound    = errors.New("invalid comment")
	ErrMotiveNotFound     = errors.New("invalid regrade motive")

	// request faults
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrInvalidAction    = errors.New("invalid action")
	ErrInvalidOperation = errors.New("invalid operation")

	// a downstream generation step produced no usable output
	ErrEmptyResult = errors.New("empty result")
)

// IsNotFound reports whether err denotes a missing record.
func IsNotFound(err error) bool {
	switch pkgerrors.Cause(err) {
	case ErrDraftNotFound, ErrSubmissionNotFound, ErrActivityNotFound,
		ErrStudentNotFound, ErrPageNotFound, ErrCommentNotFound, ErrMotiveNotFound:
		return true
	}
	return false
}
