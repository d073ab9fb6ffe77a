package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnknownEvent    = "unknown_event"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeUpstreamFailure = "upstream_failure"
	ErrCodeUnauthorized    = "unauthorized"
)

var (
	// ErrNoSuggester is returned when suggestions are requested but none are configured.
	ErrNoSuggester = errors.New("no suggester configured")
	// ErrHubStopped is returned when the hub is no longer running.
	ErrHubStopped = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
