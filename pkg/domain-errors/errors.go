// Package domainerrors defines the error taxonomy shared by the request
// pipeline, the event bus and domain handlers. Each error carries a Code that
// maps to exactly one HTTP status, so transport code never inspects messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is a stable, client-visible error identifier.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limit_exceeded"
	CodeTimeout      Code = "request_timeout"
	CodeUnavailable  Code = "service_unavailable"
	CodeInternal     Code = "internal_error"
)

// FieldError points at a single offending input field.
type FieldError struct {
	Location string `json:"location,omitempty"` // body, query or params
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// Error is the domain error type. Message is safe to show to clients for every
// code except CodeInternal.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and client-facing message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation builds a CodeValidation error from field errors. The message
// names the first offending field so clients get at least one actionable hint
// even if they ignore Fields.
func Validation(fields ...FieldError) *Error {
	msg := "request validation failed"
	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Field)
		}
		msg = fmt.Sprintf("request validation failed: %s", strings.Join(names, ", "))
	}
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

// As extracts a *Error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
