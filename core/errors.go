package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotSupported is returned by backend operations that the active backend
// does not provide (e.g. snapshot export on the remote backend).
var ErrNotSupported = errors.New("operation not supported by the active backend")

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
	return err.Err.Error()
}

// ConfigError indicates that the active backend (or the app itself) is not
// fully configured. It is a programming/deployment error and is never
// retried.
type ConfigError struct {
	message string
}

func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{message: fmt.Sprintf(format, args...)}
}

func (e ConfigError) Error() string {
	return e.message
}

func IsConfig(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}

// BackendUnavailableError indicates a remote backend network or service
// failure. A failed remote write must surface as this, never as a silent
// no-op.
type BackendUnavailableError struct {
	message string
	err     error
}

func WrapBackendUnavailable(err error, format string, args ...interface{}) error {
	return &BackendUnavailableError{message: fmt.Sprintf(format, args...), err: err}
}

func (e BackendUnavailableError) Error() string {
	if e.err == nil {
		return e.message
	}
	return e.message + ": " + e.err.Error()
}

func (e BackendUnavailableError) Unwrap() error { return e.err }

func IsBackendUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*BackendUnavailableError)
	return ok
}
