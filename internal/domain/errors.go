package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the POS service.

// ErrValidation indicates invalid input caught before any store call.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrStoreUnavailable indicates the store could not be reached: transport
// failure or timeout after all retries, or an open circuit breaker.
type ErrStoreUnavailable struct {
	Op  string
	Err error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable [%s]: %v", e.Op, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error {
	return e.Err
}

// ErrStoreRejected indicates the store answered with a non-success response.
// Message is the store's own message and is shown to the operator unchanged.
type ErrStoreRejected struct {
	Op      string
	Status  int
	Message string
}

func (e *ErrStoreRejected) Error() string {
	return e.Message
}

// ErrCheckoutInProgress is returned when a cart is touched while its
// checkout is still waiting for the store.
var ErrCheckoutInProgress = errors.New("checkout already in progress for this cart")
