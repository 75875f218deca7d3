package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Status  int       `json:"status,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code, and on Message when the target sets one.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrValidation
	ErrPrecondition
)

// GenericMessage is shown when the server gave no usable message.
const GenericMessage = "Something went wrong, please try again later"

// Class groups errors by how callers recover from them.
type Class int

const (
	ClassFatal Class = iota
	ClassUnauthorized
	ClassRecoverable
	ClassPrecondition
)

func (c Class) String() string {
	switch c {
	case ClassUnauthorized:
		return "unauthorized"
	case ClassRecoverable:
		return "recoverable"
	case ClassPrecondition:
		return "precondition"
	default:
		return "fatal"
	}
}

// Internal wraps an unexpected client-side failure.
func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}

// Precondition reports a client-side check that failed before any request.
func Precondition(message string) *AppError {
	return &AppError{
		Code:    ErrPrecondition,
		Message: message,
	}
}

// FromStatus maps an HTTP response status and the server-provided message to
// an AppError. Message may be empty.
func FromStatus(status int, message string) *AppError {
	e := &AppError{Status: status, Message: message}
	switch {
	case status == http.StatusUnauthorized:
		e.Code = ErrUnauthorized
	case status == http.StatusForbidden:
		e.Code = ErrForbidden
	case status == http.StatusNotFound:
		e.Code = ErrNotFound
	case status == http.StatusConflict:
		e.Code = ErrConflict
	case status == http.StatusUnprocessableEntity:
		e.Code = ErrValidation
	case status == http.StatusBadRequest:
		e.Code = ErrBadRequest
	default:
		e.Code = ErrInternal
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// Transport wraps a network failure that produced no HTTP response.
func Transport(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "request failed",
		Err:     err,
	}
}

// Classify returns the recovery class of err. Unknown errors are fatal.
func Classify(err error) Class {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ClassFatal
	}
	switch appErr.Code {
	case ErrUnauthorized:
		return ClassUnauthorized
	case ErrForbidden, ErrNotFound, ErrConflict, ErrValidation, ErrBadRequest:
		return ClassRecoverable
	case ErrPrecondition:
		return ClassPrecondition
	default:
		return ClassFatal
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// IsTransient reports whether err is a network failure or a 5xx response.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return true
	}
	return appErr.Code == ErrInternal
}

// UserMessage returns the text to show for err: the server message for
// recoverable and precondition errors, the generic message plus raw detail
// otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		switch Classify(appErr) {
		case ClassRecoverable, ClassPrecondition, ClassUnauthorized:
			if appErr.Message != "" {
				return appErr.Message
			}
		}
		if appErr.Status >= 500 && appErr.Message != "" && appErr.Message != http.StatusText(appErr.Status) {
			return appErr.Message
		}
	}
	return fmt.Sprintf("%s (%v)", GenericMessage, err)
}
