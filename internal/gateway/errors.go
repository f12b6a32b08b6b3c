package gateway

import "fmt"

// TransportError wraps a network-level failure (DNS, connection reset,
// timeout) talking to the upstream gateway.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError reports a non-2xx response from the upstream gateway.
type UpstreamError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway returned %s", e.Status)
}

// MalformedResponseError reports a 2xx response whose body could not be
// parsed, or which is missing the Hash field.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed gateway response: %s", e.Reason)
}
