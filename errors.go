package genaivalidator

import "github.com/datar-psa/genaivalidator/api"

var (
	// ErrNoExpectedValue is returned when an expected value is required but not provided
	ErrNoExpectedValue = api.ErrNoExpectedValue
	// ErrLLMGenerationFailed is returned when LLM generation fails
	ErrLLMGenerationFailed = api.ErrLLMGenerationFailed
	// ErrUnknownTaskType is returned for a task tag missing from the challenger table
	ErrUnknownTaskType = api.ErrUnknownTaskType
	// ErrMissingCredentials is returned when the challenger's provider credentials were not supplied
	ErrMissingCredentials = api.ErrMissingCredentials
	// ErrUnknownProvider is returned for a provider tag with no constructor
	ErrUnknownProvider = api.ErrUnknownProvider
	// ErrUnknownMetric marks a requested metric that is not registered
	ErrUnknownMetric = api.ErrUnknownMetric
	// ErrStorageRead marks a development data object that could not be read or parsed
	ErrStorageRead = api.ErrStorageRead
	// ErrInvalidExample is returned when a development record lacks a required string field
	ErrInvalidExample = api.ErrInvalidExample
)

type ProviderError = api.ProviderError
