package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	// InternalServiceError is the error code for internal service errors
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	// ValidationError is the error code for validation errors
	ValidationError ErrorCode = "VALIDATION_ERROR"
	// NotFound is the error code for not found errors
	NotFound ErrorCode = "NOT_FOUND"
	// PreconditionFailed marks a guard rejecting an operation before any
	// external effect has run.
	PreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// PostconditionFailed marks a health check failing after the operation's
	// external effects executed; the whole operation is rolled back.
	PostconditionFailed ErrorCode = "POSTCONDITION_FAILED"
	// Unauthorized marks a caller lacking the capability for a restricted
	// operation.
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// ExternalCallError marks a failure bubbled up from a collaborator
	// (swap router, lending market, token transfer).
	ExternalCallError ErrorCode = "EXTERNAL_CALL_ERROR"
	// ReentrantCall marks a mutating entry point invoked while another
	// operation is already in flight on the same vault.
	ReentrantCall ErrorCode = "REENTRANT_CALL"
)

func (e ErrorCode) String() string {
	return string(e)
}

// Error wraps a cause with an error code and the HTTP status the API surface
// should map it to.
type Error struct {
	Err        error
	StatusCode int
	ErrorCode  ErrorCode
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.ErrorCode.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return NewError(statusCode, errorCode, errors.New(msg))
}

// NewPreconditionError builds the error every Checks guard returns on
// rejection: HTTP 422, code PRECONDITION_FAILED.
func NewPreconditionError(format string, args ...any) *Error {
	return NewError(http.StatusUnprocessableEntity, PreconditionFailed, fmt.Errorf(format, args...))
}

// NewPostconditionError builds the error returned when an after-operation
// health check fails.
func NewPostconditionError(format string, args ...any) *Error {
	return NewError(http.StatusUnprocessableEntity, PostconditionFailed, fmt.Errorf(format, args...))
}

// NewExternalCallError wraps a collaborator failure.
func NewExternalCallError(err error) *Error {
	return NewError(http.StatusBadGateway, ExternalCallError, err)
}

// HasErrorCode reports whether err is a *types.Error carrying code.
func HasErrorCode(err error, code ErrorCode) bool {
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.ErrorCode == code
}
