package formkit

import (
	"errors"
	"fmt"
	"strings"
)

// Common decode and persistence errors
var (
	ErrNotMultipart        = errors.New("request is not multipart/form-data")
	ErrMissingBoundary     = errors.New("missing multipart boundary")
	ErrFieldConflict       = errors.New("field shape conflict")
	ErrFileTooLarge        = errors.New("file too large")
	ErrFieldTooLarge       = errors.New("field value too large")
	ErrTooManyParts        = errors.New("too many parts")
	ErrDestinationRequired = errors.New("destination required")
	ErrUnbound             = errors.New("no persistence strategy bound")
	ErrNotAllowed          = errors.New("operation not allowed")
	ErrNotSupported        = errors.New("operation not supported")
	ErrInvalidName         = errors.New("invalid name")
)

// StreamError records a failure of the underlying body while a part was being read.
// A StreamError aborts the whole decode.
type StreamError struct {
	Field string
	Err   error
}

// Error implements the error interface
func (e *StreamError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("multipart stream: %v", e.Err)
	}
	return fmt.Sprintf("multipart stream %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *StreamError) Unwrap() error {
	return e.Err
}

// FieldError records a field name that could not be merged into the record
type FieldError struct {
	Field string
	Err   error
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *FieldError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned when a strategy has not been given enough
// information to choose where a file goes.
type ConfigurationError struct {
	Strategy string
	Msg      string
	Err      error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Strategy, e.Msg)
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DestinationRequired builds a ConfigurationError that matches ErrDestinationRequired.
func DestinationRequired(strategy, msg string) *ConfigurationError {
	return &ConfigurationError{Strategy: strategy, Msg: msg, Err: ErrDestinationRequired}
}

// PersistenceError records a failed save and the file that caused it
type PersistenceError struct {
	Op   string
	Name string
	Err  error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UnboundSaveError is returned when a file is saved through a session that
// has no strategy.
type UnboundSaveError struct {
	Name string
}

// Error implements the error interface
func (e *UnboundSaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Name, ErrUnbound)
}

// Unwrap returns ErrUnbound
func (e *UnboundSaveError) Unwrap() error {
	return ErrUnbound
}

// FileFailure is one failed file of a bulk save.
type FileFailure struct {
	Index int
	Name  string
	Err   error
}

// BulkSaveError aggregates every failure of a bulk save. Saved holds the
// locations of the files that did succeed, indexed like the input, with an
// empty string for each failed file.
type BulkSaveError struct {
	Failures []FileFailure
	Saved    []string
}

// Error lists every failed file on its own line.
func (e *BulkSaveError) Error() string {
	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = fmt.Sprintf("File %s failed: %v", f.Name, f.Err)
	}
	return strings.Join(lines, "\n")
}

// Unwrap returns the cause of every failure
func (e *BulkSaveError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// IsConfigurationError reports whether err was caused by a missing destination
// or other strategy misconfiguration
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsUnbound reports whether err was caused by saving without a strategy
func IsUnbound(err error) bool {
	return errors.Is(err, ErrUnbound)
}

// IsFieldConflict reports whether err was caused by incompatible field names
func IsFieldConflict(err error) bool {
	return errors.Is(err, ErrFieldConflict)
}

// IsTooLarge reports whether err was caused by a decode size limit
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrFieldTooLarge) ||
		errors.Is(err, ErrTooManyParts)
}
