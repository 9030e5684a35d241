package schema

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrParse        = errors.New("parse error")
	ErrShape        = errors.New("unexpected shape")
)

// MissingFieldError reports a required key absent from a document that claims
// a recognized shape. Path locates the enclosing record, e.g. "steps[3]".
type MissingFieldError struct {
	Path  string
	Field string
}

func (e *MissingFieldError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("missing field %q", e.Field)
	}
	return fmt.Sprintf("%s: missing field %q", e.Path, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// ParseError reports a version component that is not an integer.
type ParseError struct {
	Version   string
	Component string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("version %q: component %q is not an integer", e.Version, e.Component)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

type ShapeError struct {
	Path string
	Want string
	Got  any
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %T", e.Path, e.Want, e.Got)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }
