package blob

import (
	"errors"
	"fmt"
)

// UploadServerError represents a failed blob upload
type UploadServerError struct {
	StatusCode    int
	Message       string
	IsRecoverable bool
	InnerError    error
}

func (e *UploadServerError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("blob server returned status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("blob server returned status %d", e.StatusCode)
	case e.InnerError != nil:
		return fmt.Sprintf("error during upload: %v", e.InnerError)
	}
	return "error during upload"
}

func (e *UploadServerError) Unwrap() error {
	return e.InnerError
}

// NewRecoverableUploadError creates a new recoverable UploadServerError
func NewRecoverableUploadError(inner error) *UploadServerError {
	return &UploadServerError{IsRecoverable: true, InnerError: inner}
}

// NewNonRecoverableUploadError creates a new non-recoverable UploadServerError
func NewNonRecoverableUploadError(inner error) *UploadServerError {
	return &UploadServerError{IsRecoverable: false, InnerError: inner}
}

// newStatusError classifies a non-success response. Server errors and rate
// limiting are worth retrying; any other client error is not.
func newStatusError(status int, message string) *UploadServerError {
	return &UploadServerError{
		StatusCode:    status,
		Message:       message,
		IsRecoverable: status >= 500 || status == 429 || status == 408,
	}
}

// IsUploadServerError checks if the error chain contains an UploadServerError
func IsUploadServerError(err error) bool {
	var target *UploadServerError
	return errors.As(err, &target)
}

// IsRecoverableUploadError returns true if the error is recoverable (not a client-side error)
func IsRecoverableUploadError(err error) bool {
	var target *UploadServerError
	if errors.As(err, &target) {
		return target.IsRecoverable
	}
	return false
}
