// Package errs defines the error taxonomy shared by the sparkd core.
//
// Every failure returned by the quest, reflection, ledger and redemption
// packages wraps exactly one of the sentinels below, so the transport layer
// can classify it with errors.Is and pick a status code.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a user, profile, reward or record id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance is returned when a debit exceeds the current balance.
	// The balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream is returned when a backing store is unreachable or answers
	// with something unexpected. It is propagated, never retried, by the core.
	ErrUpstream = errors.New("upstream storage error")
)

// NotFound wraps ErrNotFound with the kind and id that failed to resolve.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Invalid wraps ErrValidation with a message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps a storage failure so that errors.Is matches both ErrUpstream
// and the original cause.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &upstreamError{op: op, err: err}
}

type upstreamError struct {
	op  string
	err error
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrUpstream, e.err)
}

func (e *upstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.err}
}
