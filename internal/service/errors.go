// Package service contains the business state machines of the shop:
// inventory transitions, work orders, signal detection, dashboard
// aggregation and CSV export.  Services depend on narrow store
// interfaces so tests can run them against in-memory fakes; the
// repository package provides the MySQL implementations.
package service

import "net/http"

// Error kinds.  Every business failure carries exactly one of these
// machine-readable codes so callers can handle each kind explicitly.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateFrame     = "DUPLICATE_FRAME_NUMBER"
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
)

// Error is a tagged business error: a code from the enumeration above,
// an HTTP-like status and a message safe to show to the caller.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NotFound builds a NOT_FOUND error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: msg}
}

// Conflict builds a duplicate-key error.
func Conflict(code, msg string) *Error {
	return &Error{Code: code, Status: http.StatusConflict, Message: msg}
}

// InvalidTransition builds an error for a guarded status change.
func InvalidTransition(msg string) *Error {
	return &Error{Code: CodeInvalidTransition, Status: http.StatusUnprocessableEntity, Message: msg}
}

// Invalid builds a VALIDATION_ERROR for defensively rejected input.
func Invalid(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}
