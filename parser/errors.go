package parser

import (
	"errors"
	"fmt"
)

// MissingFieldError indicates a required selector matched no node.
type MissingFieldError struct {
	Field Field
	Code  string
}

func (e *MissingFieldError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("missing field %q", e.Field)
	}
	return fmt.Sprintf("missing field %q for card %s", e.Field, e.Code)
}

// MalformedNumberError indicates a numeric field could not be parsed.
type MalformedNumberError struct {
	Field Field
	Code  string
	Value string
	Err   error
}

func (e *MalformedNumberError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("malformed number in %q: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("malformed number in %q for card %s: %q", e.Field, e.Code, e.Value)
}

func (e *MalformedNumberError) Unwrap() error {
	return e.Err
}

// ParseError indicates the card markup is missing a structural node.
type ParseError struct {
	Code string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("parse: %v", e.Err)
	}
	return fmt.Sprintf("parse card %s: %v", e.Code, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrorLabel returns the skip reason used in logs and metrics.
func ErrorLabel(err error) string {
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return "missing_field"
	}
	var malformed *MalformedNumberError
	if errors.As(err, &malformed) {
		return "malformed_number"
	}
	var parse *ParseError
	if errors.As(err, &parse) {
		return "parse_error"
	}
	return "invalid_record"
}

// PartialCode returns the card code carried by an extraction error, if any.
func PartialCode(err error) string {
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return missing.Code
	}
	var malformed *MalformedNumberError
	if errors.As(err, &malformed) {
		return malformed.Code
	}
	var parse *ParseError
	if errors.As(err, &parse) {
		return parse.Code
	}
	return ""
}
