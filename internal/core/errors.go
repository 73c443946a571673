package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel failure kinds. Match with errors.Is; the structured Error below
// carries the offending entity so callers can render a specific message —
// the core itself never formats human-facing text.
var (
	// ErrValidation marks malformed input, rejected before any ledger access.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing item/location/request/order reference.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a concurrent mutation detected during a transaction.
	// Retryable; no partial update was applied.
	ErrConflict = errors.New("concurrent modification")

	// ErrConsistency marks ledger state that disagrees with replayed history.
	ErrConsistency = errors.New("ledger inconsistent with history")
)

// Error is the structured failure returned across the service boundary.
type Error struct {
	Kind     error  // one of the sentinels above
	Entity   string // "request", "order", "item", "location", "entry", "production"
	EntityID string
	Message  string
}

func (e *Error) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.EntityID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

// NewValidationError reports malformed input on the given entity.
func NewValidationError(entity, id, msg string) error {
	return &Error{Kind: ErrValidation, Entity: entity, EntityID: id, Message: msg}
}

// NewNotFoundError reports a dangling reference to the given entity.
func NewNotFoundError(entity, id string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, EntityID: id, Message: "does not exist"}
}

// NewConflictError reports a concurrency conflict on the given entity.
func NewConflictError(entity, id, msg string) error {
	return &Error{Kind: ErrConflict, Entity: entity, EntityID: id, Message: msg}
}

// NewConsistencyError reports replayed history disagreeing with stored state.
func NewConsistencyError(entity, id, msg string) error {
	return &Error{Kind: ErrConsistency, Entity: entity, EntityID: id, Message: msg}
}

func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsConsistency(err error) bool { return errors.Is(err, ErrConsistency) }

// translateDBError maps Postgres serialization failures and deadlocks to
// ErrConflict so callers can retry. Everything else passes through unchanged.
func translateDBError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return NewConflictError(entity, id, "concurrent transaction, retry")
		}
	}
	return err
}
