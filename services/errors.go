package services

import (
	"errors"
	"fmt"
)

var (
	ErrQuestNotFound         = errors.New("quest not found")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrItemNotFound          = errors.New("store item not found")
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrAlreadyOwned          = errors.New("item already owned")
	ErrInsufficientFunds     = errors.New("insufficient souls")
	ErrValidation            = errors.New("validation failed")
)

// PersistenceError marks a failed read or write against the store. The
// transaction it happened in has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuestNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrInventoryItemNotFound)
}
