package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrNoModels is returned when resolution is attempted against a registry
	// with no registered models.
	ErrNoModels = errors.New("no models registered")

	// ErrUnknownEmbeddingModel is returned for an unregistered embedding
	// model identifier. Embedding resolution has no fallback: embedding with
	// a different model than the one that built the vectors silently breaks
	// similarity scores.
	ErrUnknownEmbeddingModel = errors.New("unknown embedding model")
)

// ErrorKind classifies a provider failure for retry handling.
type ErrorKind int

const (
	// Transient failures (timeouts, rate limits, 5xx) may succeed on retry.
	Transient ErrorKind = iota
	// Permanent failures (model unavailable, not found) will not succeed on
	// retry against the same model; callers should switch to a fallback.
	Permanent
)

func (k ErrorKind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// Error is a structured provider failure. The classification is decided by
// the provider adapter itself, from its SDK's typed errors, so callers never
// match on message substrings.
type Error struct {
	Model string
	Kind  ErrorKind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s error: %v", e.Model, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTransient wraps err as a transient provider error.
func NewTransient(model string, err error) *Error {
	return &Error{Model: model, Kind: Transient, Err: err}
}

// NewPermanent wraps err as a permanent provider error.
func NewPermanent(model string, err error) *Error {
	return &Error{Model: model, Kind: Permanent, Err: err}
}

// IsPermanent reports whether err is a provider error classified as permanent.
func IsPermanent(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == Permanent
}

// KindFromStatus maps an HTTP status code to an error kind. 404 and 410
// signal a missing or retired model; everything else is treated as
// retryable. Adapters whose SDKs surface richer signals should prefer those.
func KindFromStatus(code int) ErrorKind {
	switch code {
	case 404, 410:
		return Permanent
	default:
		return Transient
	}
}
