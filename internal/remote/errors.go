package remote

import (
	"errors"
	"fmt"
)

// ErrUnusableReply means the endpoint answered but no candidate carried text.
var ErrUnusableReply = errors.New("model reply has no usable text")

// ConfigError reports a malformed API key or request setting, detected
// before any network call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// APIError reports a transport failure (Status 0) or a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
