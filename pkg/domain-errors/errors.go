// Package domainerrors defines the service-wide error taxonomy.
//
// Every failure a caller can observe carries a stable machine-readable Code.
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors here; the HTTP layer maps codes to status classes.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable reason string.
type Code string

const (
	// Validation failures (HTTP 400).
	CodeInvalidLabel Code = "invalid_label"
	CodeReserved     Code = "reserved"
	CodeBadRequest   Code = "bad_request"

	// Authorization failures (HTTP 401).
	CodeBadSignature Code = "bad_signature"
	CodeClockSkew    Code = "clock_skew"
	CodeAuthExpired  Code = "authorization_expired"

	// Resource state failures.
	CodeNotFound       Code = "not_found"       // HTTP 404
	CodeExpired        Code = "expired"         // HTTP 404 (record past its editable window)
	CodeAlreadyTaken   Code = "already_taken"   // HTTP 409
	CodeReplayDetected Code = "replay_detected" // HTTP 409
	CodeConflict       Code = "conflict"        // HTTP 409

	// Infrastructure (HTTP 5xx).
	CodeUnavailable Code = "unavailable" // upstream read failed, fail-closed
	CodeInternal    Code = "internal_error"
)

// Error is a coded domain error. The wrapped cause, if any, is never exposed
// to HTTP clients; the code and message are.
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

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status class per the API contract:
// 400 validation, 401 auth, 404 not-found, 409 conflict/replay, 5xx only for
// genuine infrastructure failure.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidLabel, CodeReserved, CodeBadRequest:
		return http.StatusBadRequest
	case CodeBadSignature, CodeClockSkew, CodeAuthExpired:
		return http.StatusUnauthorized
	case CodeNotFound, CodeExpired:
		return http.StatusNotFound
	case CodeAlreadyTaken, CodeReplayDetected, CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
