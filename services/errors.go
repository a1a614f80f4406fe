package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure
type ErrorKind string

const (
	KindAuthorization     ErrorKind = "authorization"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindConflict          ErrorKind = "conflict"
	KindValidation        ErrorKind = "validation"
)

// ServiceError is a typed failure surfaced to callers unchanged
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first ServiceError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func newError(kind ErrorKind, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) error {
	return newError(KindAuthorization, format, args...)
}

func notFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func invalidTransition(format string, args ...any) error {
	return newError(KindInvalidTransition, format, args...)
}

func insufficientStock(format string, args ...any) error {
	return newError(KindInsufficientStock, format, args...)
}

func conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func invalid(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}
