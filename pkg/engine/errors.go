package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrCharacterNotFound is returned for director operations naming an
	// unknown character.
	ErrCharacterNotFound = errors.New("character not found")

	// ErrNoActiveScene is returned when a director dice override arrives
	// before any scene is open.
	ErrNoActiveScene = errors.New("no scene is currently in progress")

	// ErrNoActiveAct is returned when an event injection arrives before the
	// first act is planned.
	ErrNoActiveAct = errors.New("no act is currently in progress")

	// ErrThreadIndexOutOfRange is returned for a thread override with a bad
	// index.
	ErrThreadIndexOutOfRange = errors.New("thread index out of range")

	// ErrSessionNotFound is returned for chat against an unknown embodiment
	// session.
	ErrSessionNotFound = errors.New("embodiment session not found")

	// ErrSceneNotFound is returned for reads naming an unknown scene id.
	ErrSceneNotFound = errors.New("scene not found")

	// ErrSafetyLimit is returned when an advance-until-boundary wrapper
	// exhausts its internal step budget without seeing the boundary event.
	ErrSafetyLimit = errors.New("advance safety limit reached before boundary event")
)

// ValidationError wraps field-specific validation errors on engine inputs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
