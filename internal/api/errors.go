package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrMissingBaseURL indicates the client was built without a base URL.
	ErrMissingBaseURL = errors.New("API base URL is required")
	// ErrInvalidResponse indicates a 2xx response whose body could not be decoded.
	ErrInvalidResponse = errors.New("invalid response body")
	// ErrRateLimited matches an APIError with status 429.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// APIError represents a non-2xx HTTP response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	return e.StatusCode == 429 && target == ErrRateLimited
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
