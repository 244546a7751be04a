// Package apierr provides shared error sentinels and retry infrastructure
// for the transcription backends. Backend-specific failures are classified
// into these sentinels at the adapter boundary, so the retry layer can
// decide whether an attempt is worth repeating without knowing which vendor
// produced the error.
//
// Backends wrap with fmt.Errorf("%s: %w", msg, sentinel); callers check
// with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"context"
	"errors"
)

// Sentinel errors for backend interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exhausted (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise
	// classified, including malformed audio rejected by the backend.
	ErrBadRequest = errors.New("bad request")

	// ErrServerError indicates a backend 5xx response (transient, retryable).
	ErrServerError = errors.New("backend server error")

	// ErrTransport indicates a network-level failure before any HTTP
	// response was received (connection refused, reset, DNS).
	ErrTransport = errors.New("transport error")
)

// Kind returns a stable machine-readable name for the sentinel wrapped in
// err, or "unknown" if none matches. Manifests record this so that a run's
// failure modes survive serialization.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrServerError):
		return "server_error"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether an error is transient and worth another
// attempt. Rate limits, timeouts, server errors, and transport failures may
// succeed later; auth, quota, and malformed-input errors will not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrTransport)
}
