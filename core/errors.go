package core

import "github.com/pkg/errors"

// FieldError ties a validation message to one request field; Field holds
// the field's JSON name as the client sent it.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a request fault the client can repair: either a bare
// message (Err) or a set of per-field messages. The HTTP layer renders it
// as a 400 with the field map when Fields is set.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals that the process should stop serving, e.g. the web
// server returned an integrity error.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err (or its cause) asks for a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
