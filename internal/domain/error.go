package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFieldsToUpdate is returned when a patch carries nothing the store can write.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	// ErrInvalidView marks a stored row that cannot be turned into a valid view.
	ErrInvalidView = errors.New("invalid sensor view")
)

// ValidationError is a client fault: malformed or out-of-range input.
type ValidationError struct {
	Message string
	Fields  []string // one "field: reason" entry per violation
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, "; ")
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means no record matched.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// SensorNotFound builds the not-found error for an id.
func SensorNotFound(id int64) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf("Sensor with id %d not found", id)}
}

// StoreError wraps a persistence failure. Err may carry driver text and must
// not be shown to clients.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}
