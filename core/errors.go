package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports one or more invalid request fields. Field errors are
// collected and returned together, never fail-fast on the first field.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a request that is well-formed and authorized but
// conflicts with existing state (duplicate enrollment, duplicate title pair...).
// Invariant names the violated uniqueness/consistency rule.
type ConflictError struct {
	Invariant string
	Message   string
}

func NewConflictError(invariant, msg string) error {
	return &ConflictError{Invariant: invariant, Message: msg}
}

func (err ConflictError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	return fmt.Sprintf("conflict: %s", err.Invariant)
}

// NotFoundError reports a missing resource, including broken links in an
// ownership chain (expected state given cascading deletes).
type NotFoundError struct {
	Entity string
}

func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

func (err NotFoundError) Error() string {
	return err.Entity + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
