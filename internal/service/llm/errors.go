package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ConfigError reports a missing setting. It is raised before any network call and never retried.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Field)
}

// TransportError wraps a network or HTTP failure
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EmptyResponseError reports a successful call that carried no text
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s returned an empty response", e.Provider)
}

// IsRetryable reports whether the retry loop should try again after err
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var transportErr *TransportError
	var emptyErr *EmptyResponseError
	return errors.As(err, &transportErr) || errors.As(err, &emptyErr)
}

// ErrorClass names the taxonomy class of err
func ErrorClass(err error) string {
	var configErr *ConfigError
	var transportErr *TransportError
	var emptyErr *EmptyResponseError
	switch {
	case errors.As(err, &configErr):
		return "ConfigError"
	case errors.As(err, &transportErr):
		return "TransportError"
	case errors.As(err, &emptyErr):
		return "EmptyResponseError"
	default:
		return "Error"
	}
}

// Hint returns a short remediation for err
func Hint(err error) string {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		switch configErr.Field {
		case "api_key":
			return "Check your API key in settings."
		case "base_url":
			return "Check the base URL in settings."
		default:
			return "Check your settings."
		}
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		switch code := transportErr.StatusCode; {
		case code == 0:
			return "Check your connectivity and the base URL."
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return "Check your API key."
		case code == http.StatusNotFound:
			return "Check the base URL and the model name."
		case code == http.StatusTooManyRequests:
			return "The provider is rate limiting requests, wait a moment and retry."
		case code >= 500:
			return "The provider is having trouble, try again later."
		default:
			return "Check the model name and sampling parameters."
		}
	}

	var emptyErr *EmptyResponseError
	if errors.As(err, &emptyErr) {
		return "Check the model name, the provider returned no text."
	}
	return "Try again."
}

// UserFacingMessage renders err as a chat message with its class and a hint
func UserFacingMessage(err error) string {
	return fmt.Sprintf("**%s**: %s\n\n%s", ErrorClass(err), err.Error(), Hint(err))
}
