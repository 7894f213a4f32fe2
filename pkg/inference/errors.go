package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when API key is required but missing.
	ErrNoAPIKey = errors.New("inference: API key required")

	// ErrNoModel is returned when model is required but missing.
	ErrNoModel = errors.New("inference: model required")

	// ErrProviderUnavailable is returned when no provider is configured.
	ErrProviderUnavailable = errors.New("inference: provider unavailable")

	// ErrProviderDisabled is returned by a tier that is switched off.
	ErrProviderDisabled = errors.New("inference: provider disabled")

	// ErrEmptyResponse is returned when the API answers without content.
	ErrEmptyResponse = errors.New("inference: empty response")
)

// APIError represents an error response from an inference API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inference [%s]: API error %d (%s): %s",
			e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("inference [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Fatal reports whether the request itself or the credentials are wrong,
// so another attempt with the same input cannot succeed.
func (e *APIError) Fatal() bool {
	switch e.StatusCode {
	case 400, 401, 403, 404:
		return true
	}
	return false
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// CascadeError aggregates the per-model errors of a Cascade.
type CascadeError struct {
	Models []string
	Errors []error
}

// Error implements the error interface.
func (e *CascadeError) Error() string {
	if len(e.Errors) == 0 {
		return "inference cascade: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("inference cascade: %v", e.Errors[0])
	}
	return fmt.Sprintf("inference cascade: all %d models failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns every per-model error.
func (e *CascadeError) Unwrap() []error {
	return e.Errors
}

// Fatal reports whether every model failed with a fatal error.
// One transient failure is enough to let the caller escalate.
func (e *CascadeError) Fatal() bool {
	if len(e.Errors) == 0 {
		return false
	}
	for _, err := range e.Errors {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Fatal() {
			return false
		}
	}
	return true
}
