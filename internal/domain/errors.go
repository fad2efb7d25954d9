package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. User-facing messages stay short and non-technical.
var (
	// Validation errors: surfaced verbatim, never retried.
	ErrEmptySelection = errors.New("nothing selected to explain")

	// Output errors: recovered locally through the repair ladder.
	ErrMalformedOutput = errors.New("model output is not valid JSON")
	ErrEmptyOutput     = errors.New("model returned no usable text")

	// Moderation rejection: surfaced verbatim, never retried.
	ErrFlaggedContent = errors.New("this text cannot be explained")
)

// SelectionTooLongError rejects oversized selections. The message is
// deterministic and cites both the actual and the maximum length.
type SelectionTooLongError struct {
	Actual int
	Max    int
}

func (e *SelectionTooLongError) Error() string {
	return fmt.Sprintf("selection is %d characters, the maximum is %d", e.Actual, e.Max)
}

// ErrorClass classifies an upstream call failure.
type ErrorClass string

const (
	ClassNetworkRetryable ErrorClass = "network_retryable" // transport failure
	ClassProxyRetryable   ErrorClass = "proxy_retryable"   // HTTP 429 or 5xx
	ClassProxyError       ErrorClass = "proxy_error"       // other non-2xx
)

// CallError is a classified upstream failure. The gateway classifies,
// the orchestrator decides whether and how often to retry.
type CallError struct {
	Class      ErrorClass
	Status     int
	Detail     string
	Retriable  bool
	RetryAfter time.Duration // from a 429 Retry-After header, zero otherwise
}

func (e *CallError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Class, e.Detail)
	}
	return string(e.Class)
}

// AsCallError unwraps err into a CallError if it is one.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Retriable reports whether err is a transient upstream failure.
func Retriable(err error) bool {
	if ce, ok := AsCallError(err); ok {
		return ce.Retriable
	}
	return false
}
