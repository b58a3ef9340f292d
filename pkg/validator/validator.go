// Package validator wraps go-playground struct validation behind a small
// interface. The agent runs it twice: over the full config tree at startup
// and over HTTP request bodies before they reach the services.
package validator

import (
	validators "github.com/go-playground/validator/v10"
)

// Validator interface - Checks the `validate` tags of a struct.
type Validator interface {
	ValidateStruct(inf interface{}) error
}

type validator struct {
	validator *validators.Validate
}

// New func - Builds a Validator on the library's standard tag set; the
// config and request structs only use oneof and numeric range tags.
func New() Validator {
	return &validator{
		validator: validators.New(),
	}
}

// ValidateStruct func
func (v *validator) ValidateStruct(inf interface{}) error {
	return v.validator.Struct(inf)
}
