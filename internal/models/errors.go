package models

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every validation failure via errors.Is
var ErrValidation = errors.New("validation failed")

// ValidationError describes an invalid field. It is always recoverable by
// correcting the input and retrying.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements error
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// prefixed wraps a validation error with a location prefix such as "question 2"
func prefixed(prefix string, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		field := prefix
		if ve.Field != "" {
			field = prefix + "." + ve.Field
		}
		return &ValidationError{Field: field, Message: ve.Message}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
