package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by destination probes when no row shares the natural key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate maps unique-constraint violations.
	ErrDuplicate = errors.New("duplicate natural key")
)

// ConfigError is fatal: it is reported before any database connection is attempted.
type ConfigError struct {
	Msg     string
	Missing []string
}

func NewConfigError(msg string, missing ...string) error {
	return &ConfigError{Msg: msg, Missing: missing}
}

func (err ConfigError) Error() string {
	if len(err.Missing) == 0 {
		return err.Msg
	}
	return fmt.Sprintf("%s: %s", err.Msg, strings.Join(err.Missing, ", "))
}

func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	if len(err.Fields) == 0 {
		return err.Err.Error()
	}
	parts := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return err.Err.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

func IsDuplicate(err error) bool {
	return errors.Cause(err) == ErrDuplicate
}
