package helpers

import (
	"context"
	"fmt"
	"time"

	"live-stats/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type LiveStatsError struct {
	Message string
	Cause   error
}

func (e *LiveStatsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LiveStatsError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks.
// TransportError is recoverable and only ever reflected in the connection status.
type ConfigurationError struct{ LiveStatsError }
type TransportError struct{ LiveStatsError }
type DecodeError struct{ LiveStatsError }
type FetchError struct{ LiveStatsError }
type DatabaseError struct{ LiveStatsError }

// APIError is a structured error body returned by the stats server.
type APIError struct {
	LiveStatsError
	Status int
	Code   string
	Title  string
	Detail string
}

func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{LiveStatsError{Message: message, Cause: cause}}
}

func NewDecodeError(message string, cause error) *DecodeError {
	return &DecodeError{LiveStatsError{Message: message, Cause: cause}}
}

func NewFetchError(message string, cause error) *FetchError {
	return &FetchError{LiveStatsError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{LiveStatsError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// Retryable lets an error opt out of retries (4xx responses, for instance).
type Retryable interface {
	Retryable() bool
}

func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == 429
}

// RetryWithBackoff attempts to execute the operation up to maxRetries+1 times with exponential backoff.
// It stops early when ctx is done or the error is not retryable.
func RetryWithBackoff[T any](ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if r, ok := err.(Retryable); ok && !r.Retryable() {
			break
		}
		if attempt == maxRetries {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries+1, operation, err, delay)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger *logger.Logger
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		Logger: logger.NewLogger(nil, "ErrorHandler"),
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
