package errors

import (
	"context"
	"errors"
)

// As is a re-export of errors.As for convenient access in error handling code.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is a re-export of errors.Is for convenient access in error handling code.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is a re-export of errors.New.
func New(text string) error {
	return errors.New(text)
}

// IsPermanent checks if an error is or wraps a PermanentError.
func IsPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}

// IsTemporary checks if an error is or wraps a TemporaryError.
func IsTemporary(err error) bool {
	var terr *TemporaryError
	return errors.As(err, &terr)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nferr *NotFoundError
	return errors.As(err, &nferr)
}

// IsInvalidInput checks if an error is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var iierr *InvalidInputError
	return errors.As(err, &iierr)
}

// IsUnauthorized checks if an error is or wraps an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var uerr *UnauthorizedError
	return errors.As(err, &uerr)
}

// IsCanceled reports whether err is a CanceledError or a bare context
// cancellation/deadline error.
func IsCanceled(err error) bool {
	var cerr *CanceledError
	if errors.As(err, &cerr) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Kind returns a short, stable label for the error category, suitable for
// metric labels and span attributes. A nil error is "ok".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsCanceled(err):
		return "canceled"
	case IsInvalidInput(err):
		return "invalid_input"
	case IsNotFound(err):
		return "not_found"
	case IsUnauthorized(err):
		return "unauthorized"
	case IsTemporary(err):
		return "temporary"
	default:
		return "permanent"
	}
}
