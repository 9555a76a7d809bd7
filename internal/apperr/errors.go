// Package apperr holds the error types shared by services, middleware and handlers.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError is returned for malformed input. No state is changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a field.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a date range overlaps an existing occupancy record.
type ConflictError struct {
	BookingID  int
	CustomerID *int // nil when the conflict is an administrative block
	CheckIn    time.Time
	CheckOut   time.Time
}

func (e *ConflictError) Error() string {
	owner := "blocked dates"
	if e.CustomerID != nil {
		owner = fmt.Sprintf("customer %d", *e.CustomerID)
	}
	return fmt.Sprintf("dates conflict with booking %d (%s, %s to %s)",
		e.BookingID, owner, e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"))
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// PermissionError is returned when the caller lacks a capability.
type PermissionError struct {
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission %q required", e.Permission)
}

// SyncError describes a failed ledger mirror write. It is logged and recorded,
// never returned from a booking or sub-ledger operation.
type SyncError struct {
	Kind      string
	Operation string
	SourceID  string
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("ledger sync %s %s for %s: %v", e.Kind, e.Operation, e.SourceID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ErrReadOnlyEntry is returned when a mirrored ledger row is edited through the ledger API.
var ErrReadOnlyEntry = errors.New("ledger entry is mirrored from a customer record and is read-only")

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
