package entity

import (
	"errors"
)

// Store-level sentinels. Repositories wrap them; use cases translate them
// into their own errors.
var (
	// ErrNotFound: no article or user with that key.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is matched by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyExists: users.email unique constraint.
	ErrAlreadyExists = errors.New("entity already exists")
)

// ValidationError names the rejected field. Message is a full sentence
// that is safe to return to API clients as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return "invalid " + e.Field
	}
	return e.Message
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
