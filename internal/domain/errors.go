package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the register core.

// ErrUninitialized indicates no register snapshot has been persisted.
// Every operation depends on the register existing, so this is fatal
// and never retried.
type ErrUninitialized struct{}

func (e *ErrUninitialized) Error() string {
	return "register not initialized: no snapshot persisted"
}

// ErrUnknownOrderKind indicates a settlement carried an order kind
// outside the five recognized categories. The settlement must fail
// rather than produce a miscategorized entry.
type ErrUnknownOrderKind struct {
	Kind string
}

func (e *ErrUnknownOrderKind) Error() string {
	return fmt.Sprintf("unrecognized order kind: %q", e.Kind)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInsufficientFunds indicates the projected post-purchase balance
// would go negative. The caller must abort the purchase; nothing has
// been written.
type ErrInsufficientFunds struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: available=%s required=%s", e.Available, e.Required)
}

// ErrConflict indicates a stale snapshot version lost an optimistic
// concurrency race and the mutation must be retried on fresh state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrExternalService indicates a failure in an external collaborator
// (persistence, billing, inventory).
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
