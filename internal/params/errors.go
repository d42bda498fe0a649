package params

import "fmt"

// ConfigurationError represents a structured error that occurs during
// parameter resolution or validation. It covers unresolvable required
// parameters, malformed values, and platform selections no controller is
// registered for.
type ConfigurationError struct {
	Key     string `json:"key"`     // Parameter key the error relates to, if any
	Source  string `json:"source"`  // "file", "override", "environment", "resolver" or "platform"
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface.
func (ce *ConfigurationError) Error() string {
	if ce.Key == "" {
		return fmt.Sprintf("configuration error (%s): %s", ce.Source, ce.Message)
	}
	return fmt.Sprintf("configuration error (%s): parameter %q: %s", ce.Source, ce.Key, ce.Message)
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(key, source, message string) *ConfigurationError {
	return &ConfigurationError{
		Key:     key,
		Source:  source,
		Message: message,
	}
}
