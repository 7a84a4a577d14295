// Package ragerr defines the machine-readable error taxonomy shared across
// the RAG core. Every component that can fail returns one of these kinds
// wrapped around the underlying cause rather than a bare error, so callers
// (the job layer, the HTTP handlers) can decide retry/surface behavior
// without knowing which component failed.
package ragerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	ValidationError  Kind = "ValidationError"
	ExtractFailed    Kind = "ExtractFailed"
	EmbeddingPartial Kind = "EmbeddingPartial"
	ModelRateLimited Kind = "ModelRateLimited"
	ModelTransient   Kind = "ModelTransient"
	ModelQueueFull   Kind = "ModelQueueFull"
	ModelTimeout     Kind = "ModelTimeout"
	StoreError       Kind = "StoreError"
	NotFound         Kind = "NotFound"
	Internal         Kind = "Internal"
)

// Error is the concrete carrier for a Kind plus a human-readable message
// and, optionally, the underlying cause.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	RetryAfter float64 // seconds; only meaningful for ModelRateLimited
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// RateLimited builds a ModelRateLimited error carrying the provider's
// retry-after hint, if any.
func RateLimited(message string, cause error, retryAfterSeconds float64) *Error {
	return &Error{Kind: ModelRateLimited, Message: message, Cause: cause, RetryAfter: retryAfterSeconds}
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal if err is not a
// tagged Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
