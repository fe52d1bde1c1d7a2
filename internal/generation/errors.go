package generation

import "errors"

// Errors returned by Generator implementations.
var (
	// ErrInvalidConfig indicates the generator was constructed with
	// missing or invalid configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyRequest indicates the request carried no module or text.
	ErrEmptyRequest = errors.New("empty generation request")

	// ErrInvalidResponse indicates the LLM returned something that is not
	// usable playbook YAML.
	ErrInvalidResponse = errors.New("invalid response from LLM")

	// ErrContentBlocked indicates the LLM refused the request on safety
	// grounds. Not retryable.
	ErrContentBlocked = errors.New("content blocked by LLM safety filters")

	// ErrGenerationFailed indicates all attempts to call the LLM failed.
	ErrGenerationFailed = errors.New("playbook generation failed")
)
