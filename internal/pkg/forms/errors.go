package forms

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNotEntitled      = errors.New("an active subscription is required")
	ErrTemplateNotFound = errors.New("form not found")
	ErrAlreadySubmitted = errors.New("form already submitted")
	ErrResponseNotFound = errors.New("form response not found")
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError carries every problem found in one answer set.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
