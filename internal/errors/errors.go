// Package errors provides coded domain errors for the LibraryDesk API.
//
// Services return *Error values built from the constructors below; the API
// layer maps the Code to an HTTP status and a machine-readable error_code.
//
//	if ledger.Available == 0 {
//	    return errors.OutOfStockf("no copies of %q available", book.Title)
//	}
//
//	if errors.Is(err, errors.ErrOutOfStock) {
//	    // another member took the last copy
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeValidation        Code = "VALIDATION"
	CodeInvalidAdjustment Code = "INVALID_ADJUSTMENT"

	CodeNotFound          Code = "NOT_FOUND"
	CodeBookNotFound      Code = "BOOK_NOT_FOUND"
	CodeMemberNotFound    Code = "MEMBER_NOT_FOUND"
	CodeBorrowingNotFound Code = "BORROWING_NOT_FOUND"

	CodeDuplicateISBN  Code = "DUPLICATE_ISBN"
	CodeDuplicateEmail Code = "DUPLICATE_EMAIL"

	CodeOutOfStock      Code = "OUT_OF_STOCK"
	CodeOverCapacity    Code = "OVER_CAPACITY"
	CodeAlreadyReturned Code = "ALREADY_RETURNED"
	CodeMemberInactive  Code = "MEMBER_INACTIVE"
	CodeBookInUse       Code = "BOOK_IN_USE"
	CodeMemberInUse     Code = "MEMBER_IN_USE"
	CodeConflict        Code = "CONFLICT"

	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeInvalidAdjustment:
		return http.StatusBadRequest
	case CodeNotFound, CodeBookNotFound, CodeMemberNotFound, CodeBorrowingNotFound:
		return http.StatusNotFound
	case CodeDuplicateISBN, CodeDuplicateEmail,
		CodeOutOfStock, CodeOverCapacity, CodeAlreadyReturned, CodeMemberInactive,
		CodeBookInUse, CodeMemberInUse, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// GetStatus returns the HTTP status code, so handlers can return domain
// errors directly as huma.StatusError values.
func (e *Error) GetStatus() int {
	return e.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidAdjustment  = &Error{Code: CodeInvalidAdjustment, Message: "invalid copy adjustment"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrBookNotFound       = &Error{Code: CodeBookNotFound, Message: "book not found"}
	ErrMemberNotFound     = &Error{Code: CodeMemberNotFound, Message: "member not found"}
	ErrBorrowingNotFound  = &Error{Code: CodeBorrowingNotFound, Message: "borrowing not found"}
	ErrDuplicateISBN      = &Error{Code: CodeDuplicateISBN, Message: "a book with this ISBN already exists"}
	ErrDuplicateEmail     = &Error{Code: CodeDuplicateEmail, Message: "a member with this email already exists"}
	ErrOutOfStock         = &Error{Code: CodeOutOfStock, Message: "no copies available"}
	ErrOverCapacity       = &Error{Code: CodeOverCapacity, Message: "all copies already on shelf"}
	ErrAlreadyReturned    = &Error{Code: CodeAlreadyReturned, Message: "This book has already been returned."}
	ErrMemberInactive     = &Error{Code: CodeMemberInactive, Message: "member is not active"}
	ErrBookInUse          = &Error{Code: CodeBookInUse, Message: "book has borrowing records"}
	ErrMemberInUse        = &Error{Code: CodeMemberInUse, Message: "member has borrowing records"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return newf(CodeValidation, format, args...)
}

// ValidationWithDetails creates a validation error with field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidAdjustmentf creates an invalid copy adjustment error.
func InvalidAdjustmentf(format string, args ...any) *Error {
	return newf(CodeInvalidAdjustment, format, args...)
}

// NotFoundf creates a generic not found error.
func NotFoundf(format string, args ...any) *Error {
	return newf(CodeNotFound, format, args...)
}

// BookNotFoundf creates a book not found error.
func BookNotFoundf(format string, args ...any) *Error {
	return newf(CodeBookNotFound, format, args...)
}

// MemberNotFoundf creates a member not found error.
func MemberNotFoundf(format string, args ...any) *Error {
	return newf(CodeMemberNotFound, format, args...)
}

// BorrowingNotFoundf creates a borrowing not found error.
func BorrowingNotFoundf(format string, args ...any) *Error {
	return newf(CodeBorrowingNotFound, format, args...)
}

// DuplicateISBNf creates a duplicate ISBN error.
func DuplicateISBNf(format string, args ...any) *Error {
	return newf(CodeDuplicateISBN, format, args...)
}

// DuplicateEmailf creates a duplicate email error.
func DuplicateEmailf(format string, args ...any) *Error {
	return newf(CodeDuplicateEmail, format, args...)
}

// OutOfStockf creates an out of stock error.
func OutOfStockf(format string, args ...any) *Error {
	return newf(CodeOutOfStock, format, args...)
}

// OverCapacityf creates an over capacity error.
func OverCapacityf(format string, args ...any) *Error {
	return newf(CodeOverCapacity, format, args...)
}

// MemberInactivef creates a member inactive error.
func MemberInactivef(format string, args ...any) *Error {
	return newf(CodeMemberInactive, format, args...)
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
