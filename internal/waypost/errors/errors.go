// Package errors provides standardized error handling for the Waypost
// telemetry pipeline
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be used across the application
var (
	// ErrValidation indicates a malformed event payload
	ErrValidation = errors.New("invalid event payload")

	// ErrTransport indicates a network or HTTP failure while delivering a batch
	ErrTransport = errors.New("transport failure")

	// ErrOffline indicates delivery was skipped because the network is unreachable
	ErrOffline = errors.New("network offline")

	// ErrUnknownJourney indicates an operation referenced a journey id or type
	// that does not exist
	ErrUnknownJourney = errors.New("unknown journey")

	// ErrUnknownStep indicates a step id absent from the journey definition
	ErrUnknownStep = errors.New("unknown step")

	// ErrShutdown indicates the component has been shut down
	ErrShutdown = errors.New("component shut down")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a resource already exists
	ErrConflict = errors.New("resource already exists")
)

// Error represents a domain error with additional context
type Error struct {
	// Code is a machine-readable error code
	Code string
	// Message is a human-readable error description
	Message string
	// Op describes the operation that failed
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface with a formatted message
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain handling
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details
func NewError(code string, message string, op string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// IsValidation returns true if err represents a malformed payload
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransport returns true if err represents a delivery failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsOffline returns true if err indicates the network was unreachable
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}

// IsUnknownJourney returns true if err references a missing journey
func IsUnknownJourney(err error) bool {
	return errors.Is(err, ErrUnknownJourney)
}

// IsShutdown returns true if err indicates a stopped component
func IsShutdown(err error) bool {
	return errors.Is(err, ErrShutdown)
}
