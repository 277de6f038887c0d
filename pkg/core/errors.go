package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrValidation       = errors.New("validation failed")
	ErrPermission       = errors.New("permission denied")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("note not found")
	ErrUnsupported      = errors.New("operation not supported")
	ErrStore            = errors.New("store failure")
)

// StoreError wraps a backend failure with the operation that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// wrapStore returns err unchanged when it is already a domain error, and a
// StoreError otherwise.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStore) || errors.Is(err, ErrUnsupported) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
