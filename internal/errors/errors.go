// internal/errors/errors.go
package errors

import "fmt"

// UpstreamError is returned for any non-2xx response from the GitHub API.
// Body holds the upstream error payload: parsed JSON message when available,
// raw text otherwise.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// AuthorizationError is returned when a credential does not resolve to a valid
// identity, or when the caller does not own the resource it tries to mutate.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

// NotFoundError is returned when the target resource is absent upstream.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NetworkError wraps a transport failure that happened before a response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrMissingCredentials is returned when a query is attempted before both the
// account handle and the bearer token are available.
type ErrMissingCredentials struct{}

func (e *ErrMissingCredentials) Error() string {
	return "both an account handle and a bearer token are required"
}
