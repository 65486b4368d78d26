package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures so callers can treat a unit of
// work as failed without inspecting provider-specific detail.
type ErrorKind string

const (
	ErrRateLimited          ErrorKind = "rate_limited"
	ErrAuthFailed           ErrorKind = "auth_failed"
	ErrTransientUnavailable ErrorKind = "transient_unavailable"
	ErrUnsupportedProvider  ErrorKind = "unsupported_provider"
)

// ProviderError is the single typed error surfaced from any adapter.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// KindOf returns the classification of err, or "" if err is not a ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// classifyStatus maps an HTTP status from a provider API to an error kind:
// 429 -> rate_limited, 401/403 -> auth_failed, everything else that is not
// a success -> transient_unavailable.
func classifyStatus(provider string, status int, body string) *ProviderError {
	kind := ErrTransientUnavailable
	switch {
	case status == 429:
		kind = ErrRateLimited
	case status == 401 || status == 403:
		kind = ErrAuthFailed
	}
	if len(body) > 300 {
		body = body[:300]
	}
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Message: body}
}

// wrapTransportError classifies network-level failures (connection refused,
// DNS, timeouts) as transient.
func wrapTransportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrTransientUnavailable, Message: err.Error()}
}
