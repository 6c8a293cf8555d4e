package domain

import "errors"

// Sentinel errors for the domain layer. Every failure surfaced by the
// mutation pipeline wraps exactly one of these.
var (
	ErrNotFound         = errors.New("domain: not found")
	ErrForbidden        = errors.New("domain: forbidden")
	ErrValidation       = errors.New("domain: validation failed")
	ErrInvalidOperation = errors.New("domain: invalid operation")
	ErrStorage          = errors.New("domain: storage failure")
	ErrUnauthorized     = errors.New("domain: unauthorized")
)

// IsTerminal reports whether err is one of the caller-facing errors that
// must never be retried and never produce a broadcast.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidOperation)
}
