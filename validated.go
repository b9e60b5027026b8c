package formkit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// ValidationErrorType represents different kinds of file rejections
type ValidationErrorType string

const (
	ErrorTypeSize      ValidationErrorType = "size"
	ErrorTypeMIME      ValidationErrorType = "mime"
	ErrorTypeExtension ValidationErrorType = "extension"
)

// ValidationError is returned when a file is rejected before it is saved.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation error: %s", e.Type, e.Message)
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FileValidator checks a decoded file before it is persisted.
type FileValidator interface {
	ValidateFile(f *File) error
}

// Constraints is a FileValidator built from simple limits. Zero values
// disable the matching check.
type Constraints struct {
	// MaxFileSize is the largest accepted size in bytes
	MaxFileSize int64

	// MinFileSize is the smallest accepted size in bytes
	MinFileSize int64

	// AcceptedTypes lists accepted media types; globs like "image/*" are allowed
	AcceptedTypes []string

	// AllowedExts lists accepted extensions without the dot
	AllowedExts []string

	// BlockedExts lists rejected extensions without the dot
	BlockedExts []string
}

// IsZero reports whether c checks nothing
func (c Constraints) IsZero() bool {
	return c.MaxFileSize == 0 && c.MinFileSize == 0 &&
		len(c.AcceptedTypes) == 0 && len(c.AllowedExts) == 0 && len(c.BlockedExts) == 0
}

// ValidateFile implements FileValidator
func (c Constraints) ValidateFile(f *File) error {
	if c.MaxFileSize > 0 && f.Size > c.MaxFileSize {
		return &ValidationError{
			Type: ErrorTypeSize,
			Message: fmt.Sprintf("file %s is %s, larger than %s",
				f.OriginalName, humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(c.MaxFileSize))),
		}
	}
	if c.MinFileSize > 0 && f.Size < c.MinFileSize {
		return &ValidationError{
			Type: ErrorTypeSize,
			Message: fmt.Sprintf("file %s is %s, smaller than %s",
				f.OriginalName, humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(c.MinFileSize))),
		}
	}

	ext := strings.ToLower(f.Extension)
	if slices.Contains(c.BlockedExts, ext) {
		return &ValidationError{Type: ErrorTypeExtension, Message: fmt.Sprintf("extension %q is blocked", ext)}
	}
	if len(c.AllowedExts) > 0 && !slices.Contains(c.AllowedExts, ext) {
		return &ValidationError{Type: ErrorTypeExtension, Message: fmt.Sprintf("extension %q is not allowed", ext)}
	}

	if len(c.AcceptedTypes) > 0 {
		accepted := slices.ContainsFunc(c.AcceptedTypes, func(p string) bool {
			return MatchMediaType(p, f.MediaType)
		})
		if !accepted {
			return &ValidationError{Type: ErrorTypeMIME, Message: fmt.Sprintf("media type %s is not accepted", f.MediaType)}
		}
	}
	return nil
}

// ParseList splits a comma separated configuration value, dropping blanks
// and leading dots.
func ParseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(item)), ".")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ValidatedStrategy rejects files its validator refuses and hands the rest
// to the wrapped strategy.
type ValidatedStrategy struct {
	strategy  Strategy
	validator FileValidator
}

// NewValidatedStrategy wraps s with v
func NewValidatedStrategy(s Strategy, v FileValidator) *ValidatedStrategy {
	return &ValidatedStrategy{strategy: s, validator: v}
}

// Save validates the file before saving it
func (v *ValidatedStrategy) Save(ctx context.Context, f *File, opts ...SaveOption) (string, error) {
	if f == nil {
		return "", ErrInvalidName
	}
	if err := v.validator.ValidateFile(f); err != nil {
		return "", &PersistenceError{Op: "validate", Name: f.FullName, Err: err}
	}
	return v.strategy.Save(ctx, f, opts...)
}

// SaveMany implements BulkStrategy
func (v *ValidatedStrategy) SaveMany(ctx context.Context, files []*File, opts ...SaveOption) ([]string, error) {
	return SaveMany(ctx, v, files, opts...)
}

// Verify interface compliance at compile time
var _ BulkStrategy = (*ValidatedStrategy)(nil)
