package convert

import "errors"

var (
	// ErrBinaryNotFound indicates the converter executable was not found.
	ErrBinaryNotFound = errors.New("converter binary not found")
	// ErrExecutionFailed indicates the converter exited with a non-zero status.
	ErrExecutionFailed = errors.New("converter execution failed")
)
