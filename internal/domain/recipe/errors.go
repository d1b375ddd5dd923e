package recipe

import (
	"errors"
	"strings"
)

// Domain errors for recipe operations

var (
	// Entity validation errors
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title must not exceed 200 characters")
	ErrLineTooLong       = errors.New("entry must not exceed 500 characters")
	ErrInvalidCookTime   = errors.New("cook time must be between 0 and 1440 minutes")
	ErrServingsTooLong   = errors.New("servings must not exceed 20 characters")
	ErrInvalidTag        = errors.New("tags must be non-empty and at most 50 characters")
	ErrInvalidSourceURL  = errors.New("source URL must be an absolute http(s) URL")
	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrRecipeAlreadyGone = errors.New("recipe is already deleted")
)

// FieldError ties a validation failure to the field that caused it
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every field failure found while validating a recipe
type ValidationError []FieldError

func (v ValidationError) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Is lets errors.Is match any of the wrapped field errors
func (v ValidationError) Is(target error) bool {
	for _, fe := range v {
		if errors.Is(fe.Err, target) {
			return true
		}
	}
	return false
}
