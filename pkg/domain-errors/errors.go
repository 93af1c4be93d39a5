// Package domainerrors provides typed, code-carrying errors for the service layer.
//
// Services return *Error values so callers (HTTP adapters, batch importers) can
// branch on Code without inspecting message text. Stores never construct these;
// they return sentinel facts from pkg/platform/sentinel which services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure. Codes are stable strings and safe to expose.
type Code string

const (
	// Validation-time codes. Always recoverable by resubmitting corrected data.
	CodeMissingField      Code = "missing_field"
	CodeUnknownCenter     Code = "unknown_center"
	CodeInactiveCenter    Code = "inactive_center"
	CodeInvalidTotals     Code = "invalid_totals"
	CodeUnknownParty      Code = "unknown_party"
	CodeBreakdownOverflow Code = "breakdown_overflow"

	// Workflow-time codes. Indicate a stale or duplicate client action.
	CodeNotFound         Code = "not_found"
	CodeAlreadyFinalized Code = "already_finalized"
	CodeForbidden        Code = "forbidden"
	CodeUnauthorized     Code = "unauthorized"

	// Infrastructure failure, surfaced as-is.
	CodeStorageUnavailable Code = "storage_unavailable"

	// Adapter-level codes.
	CodeBadRequest Code = "bad_request"
	CodeInternal   Code = "internal_error"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
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

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsValidation reports whether the code belongs to the submission validation family.
func (c Code) IsValidation() bool {
	switch c {
	case CodeMissingField, CodeUnknownCenter, CodeInactiveCenter,
		CodeInvalidTotals, CodeUnknownParty, CodeBreakdownOverflow:
		return true
	}
	return false
}
