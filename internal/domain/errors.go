package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrUnauthorized indicates the server rejected the credential
	ErrUnauthorized = errors.New("authentication token is invalid")

	// ErrNoServerConnection indicates the server refused the connection or timed out
	ErrNoServerConnection = errors.New("recipe server is unreachable")

	// ErrNotMealie indicates the response did not look like the Mealie API
	ErrNotMealie = errors.New("server does not look like Mealie")

	// ErrMalformedURL indicates any other failure while probing a base URL
	ErrMalformedURL = errors.New("base URL is malformed")

	// ErrRecipeNotFound indicates the recipe is not in the local cache
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrNoBaseURL indicates no base URL has been accepted yet
	ErrNoBaseURL = errors.New("base URL is not configured")

	// ErrVersionUnavailable indicates the server version could not be determined
	// even after probing. Callers must ask the user to reconfigure the base URL.
	ErrVersionUnavailable = errors.New("version number is not available")
)

// ErrorKind classifies failures at the network boundary.
type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota
	KindNoServerConnection
	KindNotMealie
	KindMalformedURL
)

// String returns a human-readable name for the kind
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNoServerConnection:
		return "no server connection"
	case KindNotMealie:
		return "not mealie"
	case KindMalformedURL:
		return "malformed url"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNoServerConnection:
		return ErrNoServerConnection
	case KindNotMealie:
		return ErrNotMealie
	default:
		return ErrMalformedURL
	}
}

// NetworkError is a classified failure from the remote recipe server.
// errors.Is matches it against the sentinel for its kind as well as the cause.
type NetworkError struct {
	Kind ErrorKind
	Err  error
}

// NewNetworkError wraps err with the given kind
func NewNetworkError(kind ErrorKind, err error) *NetworkError {
	return &NetworkError{Kind: kind, Err: err}
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of a classified network error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Kind, true
	}
	return 0, false
}
