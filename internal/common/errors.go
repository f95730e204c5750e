// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Classification errors.
	ErrInvalidSchema         = errors.New("classification response does not match schema")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrClassificationTimeout = errors.New("classification timed out")

	// Embedding errors.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrEmbeddingTimeout     = errors.New("embedding timed out")

	// Search errors.
	ErrSearchUnavailable = errors.New("search backend unavailable")
	ErrMalformedQuery    = errors.New("malformed search query")

	// Aggregation errors.
	ErrAggregationUnavailable = errors.New("aggregation backend unavailable")

	// UnsupportedIntent indicates enum drift between the classifier and the
	// planner. It is fatal for the request and never treated as missing data.
	ErrUnsupportedIntent = errors.New("unsupported intent")

	// Session errors.
	ErrSessionNotFound = errors.New("session not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user. The
// UserMessage is always plain natural language, never an error code.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrSearchUnavailable) ||
		errors.Is(err, ErrAggregationUnavailable) ||
		errors.Is(err, ErrClassifierUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
