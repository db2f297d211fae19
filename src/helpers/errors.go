package helpers

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type CoinDashError struct {
	Message string
	Cause   error
}

func (e *CoinDashError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CoinDashError) Unwrap() error {
	return e.Cause
}

// Distinct error types for the acquisition pipeline's failure taxonomy.
type UpstreamError struct{ CoinDashError }      // provider call failed / non-2xx
type TimeoutError struct{ CoinDashError }       // remote deadline exceeded
type InvalidFormatError struct{ CoinDashError } // response missing expected series shape
type TransportError struct{ CoinDashError }     // realtime channel failed
type ReconnectExhaustedError struct {           // realtime permanently degraded for a topic
	CoinDashError
	Topic string
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewUpstreamError(msg string, cause error) error {
	return &UpstreamError{CoinDashError{Message: msg, Cause: cause}}
}

func NewTimeoutError(msg string, cause error) error {
	return &TimeoutError{CoinDashError{Message: msg, Cause: cause}}
}

func NewInvalidFormatError(msg string) error {
	return &InvalidFormatError{CoinDashError{Message: msg}}
}

func NewTransportError(msg string, cause error) error {
	return &TransportError{CoinDashError{Message: msg, Cause: cause}}
}

func NewReconnectExhaustedError(topic string) error {
	return &ReconnectExhaustedError{
		CoinDashError: CoinDashError{Message: fmt.Sprintf("realtime unavailable for %s", topic)},
		Topic:         topic,
	}
}

// -----------------------------------------------------------------------------

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n",
			attempt+1, maxRetries, operation, lastErr, delay)
		time.Sleep(delay)
	}

	return lastErr
}
