package ghl

import (
	"errors"
	"fmt"
)

// ErrNoFieldID is returned when a create-field response carries no recognizable id.
var ErrNoFieldID = errors.New("no field ID found in response")

// TransportError is a failure to reach the API at all: DNS, connect, TLS or timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx answer from the API. Body is kept verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GHL API returned status %d: %s", e.StatusCode, e.Body)
}

// IsTransport reports whether err is a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
