// Package api provides the HTTP client for the remote temp-mail API. It
// handles request/response serialization, the 2xx success check, optional
// fixed-delay retries and an optional client-side rate limit.
//
// # Endpoints
//
// The remote service exposes three calls used by this client:
//
//   - GET  /domains                  -> {"domains": [{"name": "..."}]}
//   - POST /email/new                -> {"email": "local@domain"}
//   - GET  /email/{address}/messages -> [{"from", "subject", "body_text"}]
//
// No authentication header is sent. The create call always carries an empty
// "token" field.
//
// # Retry Behavior
//
// Retries are disabled by default: a failed call is reported once. When
// [Config.MaxRetries] is set, a call is repeated after [Config.RetryDelay]
// for transport errors and for the statuses in [DefaultRetryOn]
// (or [Config.RetryOn]):
//
//   - 429 Too Many Requests
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// There is no backoff: every pause has the same length.
//
// # Error Handling
//
// Every failure is one of:
//
//   - [*APIError]: the server answered with a non-2xx status.
//   - [*NetworkError]: the request never produced a response.
//   - [ErrInvalidResponse]: the body could not be decoded.

//
// # Thread Safety
//
// The [Client] type is safe for concurrent use.
package api
