package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/redcell/internal/types"
)

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{599, true},
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{422, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.retryable, retryableStatus(tt.status))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewTransportError(3, errors.New("connection refused"))))
	assert.True(t, IsRetryable(NewServerError(3, 503, nil)))
	assert.False(t, IsRetryable(NewClientError(400, nil)))
	assert.False(t, IsRetryable(NewResponseParseError(errors.New("bad json"))))
	assert.False(t, IsRetryable(errors.New("untyped")))
	assert.False(t, IsRetryable(nil))

	// Retryability survives message wrapping.
	wrapped := fmt.Errorf("scan vector 4: %w", NewServerError(2, 500, nil))
	assert.True(t, IsRetryable(wrapped))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 503, StatusCode(NewServerError(1, 503, []byte("busy"))))
	assert.Equal(t, 400, StatusCode(NewClientError(400, nil)))
	assert.Equal(t, 0, StatusCode(NewTransportError(1, errors.New("refused"))))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestHTTPErrorMessage(t *testing.T) {
	err := &HTTPError{StatusCode: 502, Body: "bad gateway"}
	assert.Equal(t, "status 502: bad gateway", err.Error())

	bare := &HTTPError{StatusCode: 404}
	assert.Equal(t, "status 404", bare.Error())
}

func TestErrorBodyTruncation(t *testing.T) {
	long := []byte(strings.Repeat("a", maxErrorBodyBytes+100))
	err := NewClientError(400, long)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Len(t, httpErr.Body, maxErrorBodyBytes)

	short := NewClientError(400, []byte("tiny"))
	require.ErrorAs(t, short, &httpErr)
	assert.Equal(t, "tiny", httpErr.Body)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *types.Error
		code types.ErrorCode
	}{
		{"invalid request", NewInvalidRequestError(errors.New("no prompt")), ErrInvalidRequest},
		{"transport", NewTransportError(1, errors.New("refused")), ErrTransportFailed},
		{"server", NewServerError(1, 500, nil), ErrServerError},
		{"client", NewClientError(400, nil), ErrClientError},
		{"parse", NewResponseParseError(errors.New("eof")), ErrResponseParseFailed},
		{"canceled", NewCanceledError(errors.New("canceled")), ErrContextCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}
