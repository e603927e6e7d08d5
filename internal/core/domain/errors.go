package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrClaimNotFound = errors.New("claim not found")

	ErrInvalidOperation = errors.New("invalid operation")
	ErrDuplicateClaim   = fmt.Errorf("%w: user has already claimed this item", ErrInvalidOperation)

	ErrInsufficientQuantity   = errors.New("insufficient quantity")
	ErrConcurrentModification = errors.New("concurrent modification")

	ErrFileParsing         = errors.New("file parsing error")
	ErrFileTooLarge        = fmt.Errorf("%w: file size exceeds maximum allowed size", ErrFileParsing)
	ErrUnsupportedFileType = errors.New("unsupported file type")

	ErrValidation = errors.New("validation failed")
)

// ValidationError carries per-field violations of an input shape.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
