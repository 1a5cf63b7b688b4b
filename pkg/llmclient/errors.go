package llmclient

import "errors"

var (
	// ErrSchemaViolation is returned when a provider's response, even after
	// one retry, does not satisfy the requested structured-output schema.
	ErrSchemaViolation = errors.New("llmclient: response violated requested schema")

	// ErrEmptyResponse is returned when a provider returns no completion
	// candidates at all.
	ErrEmptyResponse = errors.New("llmclient: provider returned no completion")

	// ErrMissingAPIKey is returned when a provider config names an
	// environment variable that is not set.
	ErrMissingAPIKey = errors.New("llmclient: API key environment variable not set")
)
