// Package apperrors defines the error taxonomy shared by the stores, the
// order services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a stable identifier clients can switch on.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeNotFound          Code = "not_found"
	CodeInvalidStatus     Code = "invalid_status"
	CodeCommentNotAllowed Code = "comment_not_allowed"
	CodeConflict          Code = "conflict"
	CodeStorage           Code = "storage_failure"
	CodeUnknown           Code = "unknown"
)

// AppError carries a code, a human-readable message and an optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err yields a plain New.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

func Validation(message string) *AppError { return New(CodeValidation, message) }

func NotFound(message string) *AppError { return New(CodeNotFound, message) }

func Storage(err error, message string) *AppError { return Wrap(err, CodeStorage, message) }

// IsCode reports whether any error in err's chain is an AppError with code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// MessageOf returns the AppError message, falling back to err.Error().
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
