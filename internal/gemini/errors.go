package gemini

import (
	"errors"
	"fmt"
)

// ConfigurationError means no credential is set; the user must configure one
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// RemoteServiceError is a non-2xx response from the provider
type RemoteServiceError struct {
	StatusCode int
	Message    string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("Gemini API error: %d - %s", e.StatusCode, e.Message)
}

// EmptyResponseError is a successful response without usable text
type EmptyResponseError struct {
	Reason string
}

func (e *EmptyResponseError) Error() string {
	return "empty response from Gemini: " + e.Reason
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
