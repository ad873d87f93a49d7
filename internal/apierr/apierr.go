// Package apierr maps engine errors onto the stable codes and HTTP statuses
// returned by the HTTP API and the MCP tools.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dusk-indust/callscope/internal/callgraph"
	"github.com/dusk-indust/callscope/internal/codesearch"
)

// ErrorCode is a stable, client-visible failure class.
type ErrorCode string

const (
	// InvalidInput: bad base path, function name, pattern or file path.
	InvalidInput ErrorCode = "INVALID_INPUT"
	// Timeout: the request deadline expired before resolution finished.
	Timeout ErrorCode = "TIMEOUT"
	// InternalError: anything else.
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is the structured error payload.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"error"`
	cause   error
}

// New creates an Error with an explicit code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status for the error's code.
func (e *Error) Status() int {
	return Status(e.Code)
}

// Code classifies err.
func Code(err error) ErrorCode {
	var apiErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, callgraph.ErrInvalidInput), errors.Is(err, codesearch.ErrInvalidInput):
		return InvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	default:
		return InternalError
	}
}

// Status maps a code to an HTTP status.
func Status(code ErrorCode) int {
	switch code {
	case InvalidInput:
		return http.StatusBadRequest
	case Timeout:
		return http.StatusGatewayTimeout
	case "":
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// From wraps err into an Error, keeping an existing Error as is.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Code: Code(err), Message: err.Error(), cause: err}
}
