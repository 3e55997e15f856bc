package domain

import (
	"errors"
	"fmt"
)

// Sentinels classify failures for adapters: HTTP and gRPC status mapping
// keys off errors.Is against these, never off message text.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")

	// ErrInvalidArgument is a programming error between collaborators, such
	// as a nil platform handed to the store.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPersistence means the store did not commit. Nothing may report the
	// create as successful after it.
	ErrPersistence = errors.New("persistence failed")

	// ErrUnavailable means a dependency could not be reached or refused
	// service.
	ErrUnavailable = errors.New("unavailable")

	// ErrDownstream marks a failed best-effort notification.
	ErrDownstream = errors.New("downstream notification failed")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError is reported by the Command service for a platform it
// already holds.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// ValidationError rejects one field of a platform. Value, when set, is the
// rejected input.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid platform: " + e.Message
	}

	return fmt.Sprintf("invalid platform %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// PersistenceError reports a store write that did not commit.
type PersistenceError struct {
	Operation string
	Cause     error
}

func (e *PersistenceError) Error() string {
	if e.Cause == nil {
		return e.Operation + " failed"
	}

	return e.Operation + ": " + e.Cause.Error()
}

// Unwrap exposes both ErrPersistence and the driver error.
func (e *PersistenceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPersistence}
	}

	return []error{ErrPersistence, e.Cause}
}

func NewPersistenceError(operation string, cause error) error {
	return &PersistenceError{Operation: operation, Cause: cause}
}

// ForbiddenError is a 401 or 403 from the Command service.
type ForbiddenError struct {
	Operation string
	Reason    string
}

func (e *ForbiddenError) Error() string {
	msg := e.Operation + " forbidden"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

func NewForbiddenError(operation, reason string) error {
	return &ForbiddenError{Operation: operation, Reason: reason}
}

// UnavailableError names the dependency that could not serve the call.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	msg := e.Service + " unavailable"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// Notification channels.
const (
	ChannelSync  = "sync"
	ChannelAsync = "async"
)

// DownstreamError is a failed notification on one channel. The create
// workflow logs and counts it; it never reaches the HTTP caller.
type DownstreamError struct {
	Channel string
	Cause   error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s notification: %v", e.Channel, e.Cause)
}

func (e *DownstreamError) Unwrap() []error {
	return []error{ErrDownstream, e.Cause}
}

func NewDownstreamError(channel string, cause error) error {
	return &DownstreamError{Channel: channel, Cause: cause}
}

func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool        { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool      { return errors.Is(err, ErrValidation) }
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
func IsPersistence(err error) bool     { return errors.Is(err, ErrPersistence) }
func IsForbidden(err error) bool       { return errors.Is(err, ErrForbidden) }
func IsUnavailable(err error) bool     { return errors.Is(err, ErrUnavailable) }
func IsDownstream(err error) bool      { return errors.Is(err, ErrDownstream) }
