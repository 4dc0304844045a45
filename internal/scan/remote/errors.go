package remote

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies remote scanner failures for retry and breaker
// decisions.
type ErrorCategory string

const (
	ErrorTimeout          ErrorCategory = "timeout"
	ErrorBadData          ErrorCategory = "bad_data"
	ErrorOutage           ErrorCategory = "outage"
	ErrorContractMismatch ErrorCategory = "contract_mismatch"
	ErrorRateLimited      ErrorCategory = "rate_limited"
	ErrorRejected         ErrorCategory = "rejected"
	ErrorInternal         ErrorCategory = "internal"
)

// Error is a classified failure talking to the remote scanner.
type Error struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("remote scanner [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("remote scanner [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, status int, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		StatusCode: status,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a transient remote failure. Only these
// count towards opening the circuit.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// CategoryOf returns the category of err, or ErrorInternal if it is not a
// remote error.
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}
