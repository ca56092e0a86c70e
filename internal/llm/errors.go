package llm

import (
	"errors"
	"fmt"

	"github.com/zero-day-ai/redcell/internal/types"
)

// LLM dispatch error codes
const (
	ErrInvalidRequest      types.ErrorCode = "LLM_INVALID_REQUEST"
	ErrTransportFailed     types.ErrorCode = "LLM_TRANSPORT_FAILED"
	ErrServerError         types.ErrorCode = "LLM_SERVER_ERROR"
	ErrClientError         types.ErrorCode = "LLM_CLIENT_ERROR"
	ErrResponseParseFailed types.ErrorCode = "LLM_RESPONSE_PARSE_FAILED"
	ErrContextCanceled     types.ErrorCode = "LLM_CONTEXT_CANCELED"
)

// maxErrorBodyBytes caps how much of a response body a dispatch error
// carries.
const maxErrorBodyBytes = 500

// HTTPError carries the status and a body excerpt from a failed endpoint
// response. It rides as the cause of dispatch errors so callers can recover
// the status with errors.As.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// NewInvalidRequestError creates an error for an undispatchable request
func NewInvalidRequestError(cause error) *types.Error {
	return types.WrapError(ErrInvalidRequest, "invalid generate request", cause)
}

// NewTransportError creates a retryable error for a network-level failure
// that survived every attempt
func NewTransportError(attempts int, cause error) *types.Error {
	return types.WrapRetryableError(ErrTransportFailed,
		fmt.Sprintf("request failed after %d attempt(s)", attempts), cause)
}

// NewServerError creates a retryable error for a retry-eligible status that
// survived every attempt
func NewServerError(attempts, status int, body []byte) *types.Error {
	return types.WrapRetryableError(ErrServerError,
		fmt.Sprintf("endpoint returned retryable status after %d attempt(s)", attempts),
		&HTTPError{StatusCode: status, Body: truncateBody(body)})
}

// NewClientError creates a non-retryable error for a definitive endpoint
// rejection
func NewClientError(status int, body []byte) *types.Error {
	return types.WrapError(ErrClientError,
		fmt.Sprintf("endpoint rejected request with status %d", status),
		&HTTPError{StatusCode: status, Body: truncateBody(body)})
}

// NewResponseParseError creates an error for a success status carrying an
// undecodable body
func NewResponseParseError(cause error) *types.Error {
	return types.WrapError(ErrResponseParseFailed, "failed to decode endpoint response", cause)
}

// NewCanceledError creates an error for a dispatch cut short by context
// cancellation or deadline expiry
func NewCanceledError(cause error) *types.Error {
	return types.WrapError(ErrContextCanceled, "request canceled", cause)
}

// IsRetryable reports whether err represents a failure that a fresh attempt
// could plausibly clear.
func IsRetryable(err error) bool {
	var typedErr *types.Error
	if errors.As(err, &typedErr) {
		return typedErr.Retryable
	}
	return false
}

// StatusCode extracts the HTTP status carried by err, or 0 when err holds
// none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// retryableStatus reports whether an HTTP status warrants another attempt:
// rate limiting or any server-side failure.
func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		return string(body[:maxErrorBodyBytes])
	}
	return string(body)
}
