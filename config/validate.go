// Package config provides shared validation helpers for adapter
// configuration structs.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError reports a single invalid configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// Validator collects field errors across a configuration struct so a caller
// sees every problem at once instead of fixing them one by one.
type Validator struct {
	errors []FieldError
}

// NewValidator returns an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// RequireNonEmpty records an error when value is blank.
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, FieldError{Field: field, Message: "must not be empty"})
	}
	return v
}

// RequirePositive records an error when value is zero or negative.
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, FieldError{Field: field, Message: fmt.Sprintf("must be positive, got %d", value)})
	}
	return v
}

// RequireRange records an error when value falls outside [min, max].
func (v *Validator) RequireRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, FieldError{Field: field, Message: fmt.Sprintf("must be between %d and %d, got %d", min, max, value)})
	}
	return v
}

// RequireOneOf records an error when value is not in the allowed set.
func (v *Validator) RequireOneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, FieldError{Field: field, Message: fmt.Sprintf("must be one of %v, got %q", allowed, value)})
	return v
}

// Err returns all recorded field errors joined, or nil when the
// configuration is valid.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	errs := make([]error, len(v.errors))
	for i, fe := range v.errors {
		errs[i] = fe
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}
