// Package services defines the business logic for shared outputs and votes.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer (and by the raw TCP server for its one-line replies).
package services

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors below wrap one of these, so callers can
// branch with errors.Is on either the class or the specific cause.
var (
	// ErrValidation marks input rejected before touching the store.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence marks a storage failure.
	ErrPersistence = errors.New("persistence failure")
)

// Validation errors.
var (
	// ErrEmptyContent is returned when the submitted content is blank.
	ErrEmptyContent = fmt.Errorf("%w: content cannot be empty", ErrValidation)

	// ErrContentTooLarge is returned when the content exceeds MaxContentBytes.
	ErrContentTooLarge = fmt.Errorf("%w: content too large", ErrValidation)

	// ErrLabelTooLong is returned when the label exceeds MaxLabelRunes.
	ErrLabelTooLong = fmt.Errorf("%w: label too long", ErrValidation)

	// ErrInvalidDirection is returned for a vote direction other than up/down.
	ErrInvalidDirection = fmt.Errorf("%w: invalid vote direction", ErrValidation)

	// ErrInvalidSourceIP is returned when a vote has no usable source IP.
	ErrInvalidSourceIP = fmt.Errorf("%w: invalid source ip", ErrValidation)
)

var (
	// ErrOutputNotFound indicates that no output matches the given public id
	// or delete token.
	ErrOutputNotFound = errors.New("output not found")

	// ErrAlreadyVoted is returned when the source IP already voted on the
	// output, in either direction.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrIdentifierCollision is returned when freshly minted identifiers kept
	// clashing with stored ones.
	ErrIdentifierCollision = fmt.Errorf("%w: identifier collision", ErrPersistence)
)

// persistErr wraps a storage error so it matches ErrPersistence while keeping
// the driver error in the chain.
func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
