package client

import (
	"errors"
	"fmt"
)

// ErrConnection matches every *ConnectionError via errors.Is.
var ErrConnection = errors.New("error while sending the request to Infinispan")

// ConnectionError is returned when a request could not be built or sent,
// e.g. connection refused, DNS failure, timeout or a malformed base URL.
// Responses with error statuses never produce it.
type ConnectionError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s (%s %s): %v", ErrConnection, e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}
