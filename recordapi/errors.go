package recordapi

import "errors"

// Errors for configuration validation.
var (
	ErrConfigRequired  = errors.New("config is required")
	ErrBaseURLRequired = errors.New("base url is required")
	ErrInvalidBaseURL  = errors.New("base url must be an absolute http(s) url")
)

// ErrEmptyID is returned when a record id is empty.
var ErrEmptyID = errors.New("record id is required")
