package llm

import (
	"errors"
	"fmt"
)

var (
	errNotConfigured = errors.New("provider not configured")
	errNoChoices     = errors.New("no choices in response")
	errPanicked      = errors.New("provider panicked")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Code, e.Body)
}
