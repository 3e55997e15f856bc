// Package clients provides instrumented HTTP clients for downstream services.
package clients

import "errors"

var (
	// ErrCircuitOpen means the breaker refused the call; nothing was sent.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrAttemptsExhausted wraps the last transport or 5xx failure once the
	// retry budget is spent.
	ErrAttemptsExhausted = errors.New("attempts exhausted")
)
