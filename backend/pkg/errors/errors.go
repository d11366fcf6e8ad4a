package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeResearch represents source collection errors
	ErrorTypeResearch ErrorType = "research"
	// ErrorTypeSearch represents search/fetch transport errors
	ErrorTypeSearch ErrorType = "search"
	// ErrorTypeSynthesis represents concept extraction errors
	ErrorTypeSynthesis ErrorType = "synthesis"
	// ErrorTypeValidation represents relationship validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStore represents knowledge store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeReport represents report build/write errors
	ErrorTypeReport ErrorType = "report"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Research Errors

// ErrNoSources is returned when a search yields no result URLs or every fetch failed
var ErrNoSources = NewBaseError(ErrorTypeResearch, "no research sources available", nil)

// ErrFetchFailed is returned when a single page fetch fails
type ErrFetchFailed struct {
	*BaseError
	URL        string
	StatusCode int
}

func NewFetchFailed(url string, statusCode int, err error) *ErrFetchFailed {
	return &ErrFetchFailed{
		BaseError:  NewBaseError(ErrorTypeSearch, fmt.Sprintf("failed to fetch %s", url), err),
		URL:        url,
		StatusCode: statusCode,
	}
}

// ErrSearchFailed is returned when a search request fails
type ErrSearchFailed struct {
	*BaseError
	Query string
}

func NewSearchFailed(query string, err error) *ErrSearchFailed {
	return &ErrSearchFailed{
		BaseError: NewBaseError(ErrorTypeSearch, fmt.Sprintf("search failed: %q", query), err),
		Query:     query,
	}
}

// ErrSearchUnavailable is returned while the outbound circuit is open
var ErrSearchUnavailable = NewBaseError(ErrorTypeSearch, "search backend temporarily unavailable", nil)

// Synthesis Errors

// ErrNoConcepts is returned when synthesis extracted nothing usable
var ErrNoConcepts = NewBaseError(ErrorTypeSynthesis, "no concepts extracted", nil)

// Validation Errors

// ErrValidationQueryFailed is returned when the confirmation query for an edge fails
type ErrValidationQueryFailed struct {
	*BaseError
	Source string
	Target string
}

func NewValidationQueryFailed(source, target string, err error) *ErrValidationQueryFailed {
	return &ErrValidationQueryFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("confirmation query failed: %s <-> %s", source, target), err),
		Source:    source,
		Target:    target,
	}
}

// Store Errors

// ErrStoreLoadFailed is returned when the knowledge graph cannot be read
type ErrStoreLoadFailed struct {
	*BaseError
	Backend string
}

func NewStoreLoadFailed(backend string, err error) *ErrStoreLoadFailed {
	return &ErrStoreLoadFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to load graph from %s", backend), err),
		Backend:   backend,
	}
}

// ErrStoreSaveFailed is returned when the knowledge graph cannot be persisted
type ErrStoreSaveFailed struct {
	*BaseError
	Backend string
}

func NewStoreSaveFailed(backend string, err error) *ErrStoreSaveFailed {
	return &ErrStoreSaveFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to save graph to %s", backend), err),
		Backend:   backend,
	}
}

// Report Errors

// ErrReportSkipped is returned when there is nothing to report for a cycle
var ErrReportSkipped = NewBaseError(ErrorTypeReport, "report skipped: missing summary or concepts", nil)

// ErrReportWriteFailed is returned when a report cannot be written to its sink
type ErrReportWriteFailed struct {
	*BaseError
	Name string
}

func NewReportWriteFailed(name string, err error) *ErrReportWriteFailed {
	return &ErrReportWriteFailed{
		BaseError: NewBaseError(ErrorTypeReport, fmt.Sprintf("failed to write report %s", name), err),
		Name:      name,
	}
}

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration, err error) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), err),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *BaseError:
		if e.Type == errType {
			return true
		}
	case interface{ Base() *BaseError }:
		if e.Base().Type == errType {
			return true
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return IsErrorType(u.Unwrap(), errType)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if IsErrorType(inner, errType) {
				return true
			}
		}
	}
	return false
}

// Base exposes the embedded BaseError of the typed errors.
func (e *ErrFetchFailed) Base() *BaseError { return e.BaseError }
func (e *ErrSearchFailed) Base() *BaseError { return e.BaseError }
func (e *ErrValidationQueryFailed) Base() *BaseError { return e.BaseError }
func (e *ErrStoreLoadFailed) Base() *BaseError { return e.BaseError }
func (e *ErrStoreSaveFailed) Base() *BaseError { return e.BaseError }
func (e *ErrReportWriteFailed) Base() *BaseError { return e.BaseError }
func (e *ErrContextTimeout) Base() *BaseError { return e.BaseError }
func (e *ErrConfigValidationFailed) Base() *BaseError { return e.BaseError }

// IsRetryable checks if an error is worth retrying on the same topic
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Config errors never heal on their own
	if IsErrorType(err, ErrorTypeConfig) {
		return false
	}
	// A topic without sources may find some on the next search
	if IsErrorType(err, ErrorTypeResearch) {
		return true
	}
	var fetchErr *ErrFetchFailed
	if stderrors.As(err, &fetchErr) {
		// 4xx pages will not change on retry, except rate limiting
		return fetchErr.StatusCode == 0 || fetchErr.StatusCode == 429 || fetchErr.StatusCode >= 500
	}
	return IsErrorType(err, ErrorTypeSearch) ||
		IsErrorType(err, ErrorTypeSynthesis) ||
		IsErrorType(err, ErrorTypeContext) ||
		IsErrorType(err, ErrorTypeStore)
}
