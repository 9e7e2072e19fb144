package mediarelay

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a blob or record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailExists is returned when the Record API reports a duplicate email
	ErrEmailExists = errors.New("email already exists")
)

// UploadError reports a failed image upload during record creation.
// The record is never written when this error is returned.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a Record API response the relay cannot use.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.StatusCode, e.Body)
}
