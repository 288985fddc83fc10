package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable classification of a domain failure.
type ErrorCode string

const (
	CodeNotFound                 ErrorCode = "NOT_FOUND"
	CodeForbidden                ErrorCode = "FORBIDDEN"
	CodeInvalidStatus            ErrorCode = "INVALID_STATUS"
	CodeInvalidTransition        ErrorCode = "INVALID_TRANSITION"
	CodeInvalidInitialStatus     ErrorCode = "INVALID_INITIAL_STATUS"
	CodeMemberCannotAssignOthers ErrorCode = "MEMBER_CANNOT_ASSIGN_OTHERS"
	CodeCannotAssignToObserver   ErrorCode = "CANNOT_ASSIGN_TO_OBSERVER"
	CodeMaxDepthExceeded         ErrorCode = "MAX_DEPTH_EXCEEDED"
	CodeSubtaskNoReview          ErrorCode = "SUBTASK_NO_REVIEW"
	CodeUseStatusEndpoint        ErrorCode = "USE_STATUS_ENDPOINT"
	CodeMissingFields            ErrorCode = "MISSING_FIELDS"
	CodeInvalidPriority          ErrorCode = "INVALID_PRIORITY"
	CodeInvalidParent            ErrorCode = "INVALID_PARENT"
	CodeInvalidRole              ErrorCode = "INVALID_ROLE"
)

// Error is a structured domain error. Two Errors match under errors.Is when
// their codes are equal, so callers can test against the sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError builds an Error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the human-readable message of the first *Error in err's
// chain, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Sentinel errors for the domain layer.
var (
	ErrNotFound                 = &Error{Code: CodeNotFound}
	ErrForbidden                = &Error{Code: CodeForbidden}
	ErrInvalidStatus            = &Error{Code: CodeInvalidStatus}
	ErrInvalidTransition        = &Error{Code: CodeInvalidTransition}
	ErrInvalidInitialStatus     = &Error{Code: CodeInvalidInitialStatus}
	ErrMemberCannotAssignOthers = &Error{Code: CodeMemberCannotAssignOthers}
	ErrCannotAssignToObserver   = &Error{Code: CodeCannotAssignToObserver}
	ErrMaxDepthExceeded         = &Error{Code: CodeMaxDepthExceeded}
	ErrSubtaskNoReview          = &Error{Code: CodeSubtaskNoReview}
	ErrUseStatusEndpoint        = &Error{Code: CodeUseStatusEndpoint}
	ErrMissingFields            = &Error{Code: CodeMissingFields}
	ErrInvalidPriority          = &Error{Code: CodeInvalidPriority}
	ErrInvalidParent            = &Error{Code: CodeInvalidParent}
	ErrInvalidRole              = &Error{Code: CodeInvalidRole}
)
