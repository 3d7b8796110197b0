// Package domainerrors defines the error taxonomy shared by services and
// transport. Services create or wrap errors with a Code; handlers translate
// codes to HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. Codes are machine-readable and stable;
// messages are for humans and may change.
type Code string

const (
	// CodeValidation marks malformed or missing input. The caller can recover
	// by correcting the request.
	CodeValidation Code = "validation"

	// CodeBadRequest marks a request the transport layer could not interpret
	// (undecodable body, bad path parameter).
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks a missing or invalid caller identity.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an actor lacking the required relationship to the
	// resource. Not retryable without a different actor.
	CodeForbidden Code = "forbidden"

	// CodeNotFound marks a resource that does not exist or was hard-deleted.
	CodeNotFound Code = "not_found"

	// CodeInvalidState marks an operation that is not valid for the resource's
	// current state. The caller must reload.
	CodeInvalidState Code = "invalid_state"

	// CodeConflict marks an optimistic-concurrency loss. The caller must
	// reload and may only retry the action valid for the new state.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks a broken model invariant detected at
	// construction time. Services convert it to CodeValidation at the API edge.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeTimeout marks an aborted operation due to deadline or cancellation.
	CodeTimeout Code = "timeout"

	// CodeInternal marks an unexpected failure. Details stay in logs.
	CodeInternal Code = "internal"
)

// Error carries a Code alongside the message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message while preserving the chain.
// A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err without the cause chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
