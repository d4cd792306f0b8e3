package tempmail

import (
	"errors"
	"fmt"

	"github.com/tempmailkit/tempmail-go/internal/api"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingBaseURL is returned when no API base URL is provided.
	ErrMissingBaseURL = api.ErrMissingBaseURL

	// ErrNoAddress is returned when an operation needs an allocated address.
	ErrNoAddress = errors.New("no email address has been generated")

	// ErrInvalidName is matched by ValidationError.
	ErrInvalidName = errors.New("invalid email name")

	// ErrStalePoll is returned by a polling step that was scheduled for an
	// address that has since been replaced.
	ErrStalePoll = errors.New("polling step belongs to a replaced address")

	// ErrPollInProgress is returned when polling is already running for the
	// current address.
	ErrPollInProgress = errors.New("polling already in progress")

	// ErrSessionClosed is returned when polling is requested on a closed
	// session.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
	ErrInvalidResponse = api.ErrInvalidResponse

	// ErrRateLimited matches an *APIError with status 429.
	ErrRateLimited = api.ErrRateLimited
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

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError reports a rejected custom local-part. It is a purely local
// failure: no request is made.
type ValidationError struct {
	Name string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid email name %q: only letters, numbers, underscores, or hyphens are allowed", e.Name)
}

// Is implements errors.Is for sentinel error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidName
}

// IsRemoteFailure reports whether err is the single remote failure kind:
// a non-2xx status, a transport error or an undecodable body.
func IsRemoteFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	var netErr *NetworkError
	return errors.As(err, &apiErr) || errors.As(err, &netErr) || errors.Is(err, ErrInvalidResponse)
}

// wrapError converts internal API errors to public errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	return err
}
