// Package apperror classifies failures so callers can react without string matching.
package apperror

import "errors"

type Code string

const (
	CodeValidation           Code = "validation"
	CodeCapacityExceeded     Code = "capacity_exceeded"
	CodeWriteFailure         Code = "write_failure"
	CodeAuthMismatch         Code = "auth_mismatch"
	CodeNotFound             Code = "not_found"
	CodeConfirmationRequired Code = "confirmation_required"
)

// Error is a classified error. Two errors match with errors.Is when their codes
// match, and a capacity error also matches validation.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeCapacityExceeded && t.Code == CodeValidation
}

// Kind sentinels match every error of their code.
var (
	ErrValidation           = &Error{Code: CodeValidation}
	ErrCapacityExceeded     = &Error{Code: CodeCapacityExceeded}
	ErrWriteFailure         = &Error{Code: CodeWriteFailure}
	ErrAuthMismatch         = &Error{Code: CodeAuthMismatch}
	ErrNotFound             = &Error{Code: CodeNotFound}
	ErrConfirmationRequired = &Error{Code: CodeConfirmationRequired}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// CodeOf returns the code of the first classified error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
