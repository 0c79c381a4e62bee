package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTemporary    = errors.New("temporary failure")
)

// Failure categories reported by analyzers.
var (
	ErrValidationFailure = errors.New("validation failure")
	ErrAnalyzerFailure   = errors.New("analyzer failure")
	ErrResourceFailure   = errors.New("resource failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ProcessingError is raised by an analyzer, e.g. an image decode failure
// (Kind=image, Category=ErrAnalyzerFailure).
type ProcessingError struct {
	Kind     AnalysisKind
	Category error
	Err      error
}

func NewProcessingError(kind AnalysisKind, category error, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Category: category, Err: err}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s processing failed: %v: %v", e.Kind, e.Category, e.Err)
}

func (e *ProcessingError) Unwrap() []error {
	return []error{e.Category, e.Err}
}

// CategoryName returns the short label used in logs and terminal results.
func CategoryName(err error) string {
	switch {
	case errors.Is(err, ErrValidationFailure):
		return "validation"
	case errors.Is(err, ErrResourceFailure):
		return "resource"
	default:
		return "analyzer"
	}
}
