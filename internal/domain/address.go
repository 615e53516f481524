package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ShippingAddress is validated before any payment call is made.
type ShippingAddress struct {
	Name   string `json:"name"`
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

var (
	stateRe = regexp.MustCompile(`^[A-Za-z]{2}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// FieldError reports the first violated address field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid address: %s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidAddress
}

// Validate checks the fixed address schema and returns a *FieldError
// (wrapping ErrInvalidAddress) for the first violated field.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return &FieldError{Field: "street", Reason: "must not be empty"}
	}
	if strings.TrimSpace(a.City) == "" {
		return &FieldError{Field: "city", Reason: "must not be empty"}
	}
	if !stateRe.MatchString(a.State) {
		return &FieldError{Field: "state", Reason: "must be a 2-letter code"}
	}
	if !zipRe.MatchString(a.Zip) {
		return &FieldError{Field: "zip", Reason: "must be a 5 or 9 digit ZIP"}
	}
	return nil
}
