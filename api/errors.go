// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-relay.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrClosed          = fmt.Errorf("relay is closed")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrTableFull       = fmt.Errorf("too many clients")
	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrConnect         = fmt.Errorf("can't connect to server")
	ErrSetup           = fmt.Errorf("server setup failed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeSetup
	ErrCodeConnect
	ErrCodeInternal
)

// Error represents a structured error with code and context.
// Err, when set, is the sentinel the error matches under errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a structured error around cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := NewError(code, message)
	e.Err = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
