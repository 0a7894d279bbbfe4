package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLarge indicates a frame exceeded the reader's size limit.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrMissingType indicates a request without a type field.
	ErrMissingType = errors.New("command type is required")
)

// DecodeError reports bytes that are not a well-formed JSON request object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "Invalid JSON: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownCommandError reports a type field outside the supported set.
type UnknownCommandError struct {
	Type string
}

func (e *UnknownCommandError) Error() string {
	return "Unknown command type: " + e.Type
}

// ParamError reports a missing or malformed command parameter.
type ParamError struct {
	Name   string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s %s", e.Name, e.Reason)
}
