package media

import (
	"errors"
	"fmt"
)

var (
	// ErrMediaNotFound is returned when no document matches a tmdb id in a shard
	ErrMediaNotFound = errors.New("media not found")

	// ErrInvalidIdentity is returned for malformed public ids
	ErrInvalidIdentity = errors.New("invalid media identity")

	// ErrShardOutOfRange is returned for a shard index without a configured cluster
	ErrShardOutOfRange = errors.New("shard index out of range")

	// ErrNoVariants is returned when an item would be stored without any playable file
	ErrNoVariants = errors.New("media item has no quality variants")

	// ErrMediaTypeMismatch is returned when merging a movie into a series or vice versa
	ErrMediaTypeMismatch = errors.New("media type mismatch")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
