package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoExpectedValue is returned when an expected value is required but not provided
	ErrNoExpectedValue = errors.New("expected value is required for this scorer")
	// ErrLLMGenerationFailed is returned when LLM generation fails
	ErrLLMGenerationFailed = errors.New("LLM generation failed")

	// ErrUnknownTaskType is returned for a task tag missing from the challenger table
	ErrUnknownTaskType = errors.New("unknown task type")
	// ErrMissingCredentials is returned when the challenger's provider credentials were not supplied
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrUnknownProvider is returned for a provider tag with no constructor
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnknownMetric marks a requested metric that is not registered
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrStorageRead marks a development data object that could not be read or parsed
	ErrStorageRead = errors.New("storage read failed")
	// ErrInvalidExample is returned when a development record lacks a required string field
	ErrInvalidExample = errors.New("invalid development example")
)

// ProviderError wraps a failed model call with the provider and model that produced it.
type ProviderError struct {
	// Provider is the provider tag, e.g. "azure" or "bedrock"
	Provider string
	// Model is the model or deployment that was called
	Model string
	// Status is the HTTP status code, if known
	Status int
	// Cause is the underlying error
	Cause error
}

// NewProviderError wraps cause. A cause that already is a ProviderError is returned unchanged.
func NewProviderError(provider, model string, cause error) error {
	if cause == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(cause, &pe) {
		return cause
	}
	return &ProviderError{Provider: provider, Model: model, Cause: cause}
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Model != "" {
		fmt.Fprintf(&b, " model=%s", e.Model)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating the call may succeed: throttling, timeouts and server errors.
func (e *ProviderError) Retryable() bool {
	if errors.Is(e.Cause, context.Canceled) {
		return false
	}
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	switch {
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return true
	case e.Status != 0:
		return false
	}
	if e.Cause == nil {
		return false
	}
	msg := strings.ToLower(e.Cause.Error())
	for _, pattern := range []string{
		"throttlingexception",
		"toomanyrequestsexception",
		"serviceunavailableexception",
		"rate limit",
		"too many requests",
		"timeout",
		"429",
		"500",
		"502",
		"503",
		"504",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err carries a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
