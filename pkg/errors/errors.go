// Package errors provides the structured error types used across pgcache.
// It defines error categories (Permanent, Temporary, NotFound, InvalidInput, Canceled)
// so callers can tell a bad request from an unreachable database from an aborted call.
//
// Example usage:
//
//	if err := pool.Ping(ctx); err != nil {
//	    return errors.NewTemporary("database unreachable", err)
//	}
//
//	if cfg.ConnectionString == "" {
//	    return errors.NewInvalidInput("cache.connection_string", "is required")
//	}
package errors

import (
	"fmt"
)

// PermanentError represents an error that won't succeed even if retried.
// Examples: malformed SQL, a cache table that cannot be provisioned, corrupt payloads.
type PermanentError struct {
	msg   string
	cause error
}

// NewPermanent creates a new permanent error with the given message and optional cause.
func NewPermanent(msg string, cause error) error {
	return &PermanentError{msg: msg, cause: cause}
}

func (e *PermanentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *PermanentError) Unwrap() error {
	return e.cause
}

// TemporaryError represents an error that might succeed if retried.
// Examples: connection refused, dropped connections, pool acquisition timeouts.
type TemporaryError struct {
	msg   string
	cause error
}

// NewTemporary creates a new temporary error with the given message and optional cause.
func NewTemporary(msg string, cause error) error {
	return &TemporaryError{msg: msg, cause: cause}
}

func (e *TemporaryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *TemporaryError) Unwrap() error {
	return e.cause
}

// NotFoundError represents an error when a requested resource doesn't exist.
// Cache reads never return it for a missing key; it is used by outer layers
// such as the HTTP API that must turn a miss into a response.
type NotFoundError struct {
	resource string
	id       string
	cause    error
}

// NewNotFound creates a new not found error for the given resource and ID.
func NewNotFound(resource, id string) error {
	return &NotFoundError{resource: resource, id: id}
}

// NewNotFoundWithCause creates a new not found error with an underlying cause.
func NewNotFoundWithCause(resource, id string, cause error) error {
	return &NotFoundError{resource: resource, id: id, cause: cause}
}

func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s not found: %s (%v)", e.resource, e.id, e.cause)
	}
	return fmt.Sprintf("%s not found: %s", e.resource, e.id)
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Resource returns the type of resource that wasn't found.
func (e *NotFoundError) Resource() string {
	return e.resource
}

// ID returns the identifier of the resource that wasn't found.
func (e *NotFoundError) ID() string {
	return e.id
}

// InvalidInputError represents an error due to invalid caller input or configuration.
// Examples: empty cache keys, non-positive expirations, missing connection strings.
type InvalidInputError struct {
	field string
	msg   string
	cause error
}

// NewInvalidInput creates a new invalid input error for the given field and message.
func NewInvalidInput(field, msg string) error {
	return &InvalidInputError{field: field, msg: msg}
}

// NewInvalidInputWithCause creates a new invalid input error with an underlying cause.
func NewInvalidInputWithCause(field, msg string, cause error) error {
	return &InvalidInputError{field: field, msg: msg, cause: cause}
}

func (e *InvalidInputError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid input for %s: %s (%v)", e.field, e.msg, e.cause)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.field, e.msg)
}

func (e *InvalidInputError) Unwrap() error {
	return e.cause
}

// Field returns the field name that had invalid input.
func (e *InvalidInputError) Field() string {
	return e.field
}

// Message returns the validation error message.
func (e *InvalidInputError) Message() string {
	return e.msg
}

// UnauthorizedError represents a request without valid credentials.
type UnauthorizedError struct {
	msg   string
	cause error
}

// NewUnauthorized creates a new unauthorized error with the given message.
func NewUnauthorized(msg string) error {
	return &UnauthorizedError{msg: msg}
}

// NewUnauthorizedWithCause creates a new unauthorized error with an underlying cause.
func NewUnauthorizedWithCause(msg string, cause error) error {
	return &UnauthorizedError{msg: msg, cause: cause}
}

func (e *UnauthorizedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("unauthorized: %s: %v", e.msg, e.cause)
	}
	return fmt.Sprintf("unauthorized: %s", e.msg)
}

func (e *UnauthorizedError) Unwrap() error {
	return e.cause
}

// CanceledError reports an operation that was aborted through its context
// rather than one that failed. The cause is context.Canceled or
// context.DeadlineExceeded, so errors.Is against either keeps working.
type CanceledError struct {
	op    string
	cause error
}

// NewCanceled creates a new canceled error for the named operation.
func NewCanceled(op string, cause error) error {
	return &CanceledError{op: op, cause: cause}
}

func (e *CanceledError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s canceled: %v", e.op, e.cause)
	}
	return fmt.Sprintf("%s canceled", e.op)
}

func (e *CanceledError) Unwrap() error {
	return e.cause
}

// Op returns the name of the aborted operation.
func (e *CanceledError) Op() string {
	return e.op
}
