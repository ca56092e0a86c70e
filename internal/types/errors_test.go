package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCode_Constants(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected string
	}{
		// Configuration errors
		{"CONFIG_LOAD_FAILED", CONFIG_LOAD_FAILED, "CONFIG_LOAD_FAILED"},
		{"CONFIG_PARSE_FAILED", CONFIG_PARSE_FAILED, "CONFIG_PARSE_FAILED"},
		{"CONFIG_VALIDATION_FAILED", CONFIG_VALIDATION_FAILED, "CONFIG_VALIDATION_FAILED"},
		{"CONFIG_NOT_FOUND", CONFIG_NOT_FOUND, "CONFIG_NOT_FOUND"},

		// Scan errors
		{"SCAN_VECTOR_LOAD_FAILED", SCAN_VECTOR_LOAD_FAILED, "SCAN_VECTOR_LOAD_FAILED"},
		{"SCAN_VECTOR_INVALID", SCAN_VECTOR_INVALID, "SCAN_VECTOR_INVALID"},
		{"SCAN_ABORTED", SCAN_ABORTED, "SCAN_ABORTED"},

		// Finding errors
		{"FINDING_WRITE_FAILED", FINDING_WRITE_FAILED, "FINDING_WRITE_FAILED"},
		{"FINDING_INVALID", FINDING_INVALID, "FINDING_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.code) != tt.expected {
				t.Errorf("ErrorCode = %v, want %v", tt.code, tt.expected)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "simple error without cause",
			err:  NewError(CONFIG_LOAD_FAILED, "failed to load configuration"),
			contains: []string{
				"[CONFIG_LOAD_FAILED]",
				"failed to load configuration",
			},
		},
		{
			name: "error with cause",
			err:  WrapError(SCAN_VECTOR_LOAD_FAILED, "vector pack load failed", errors.New("permission denied")),
			contains: []string{
				"[SCAN_VECTOR_LOAD_FAILED]",
				"vector pack load failed",
				"permission denied",
			},
		},
		{
			name: "retryable error",
			err:  NewRetryableError(SCAN_ABORTED, "connection refused"),
			contains: []string{
				"[SCAN_ABORTED]",
				"connection refused",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errMsg := tt.err.Error()
			for _, substring := range tt.contains {
				if !strings.Contains(errMsg, substring) {
					t.Errorf("Error() = %v, want to contain %v", errMsg, substring)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	wrapped := WrapError(FINDING_WRITE_FAILED, "could not persist finding", cause)

	if !errors.Is(wrapped, cause) {
		t.Errorf("errors.Is() should find the wrapped cause")
	}
	if unwrapped := errors.Unwrap(wrapped); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestError_Is(t *testing.T) {
	err1 := NewError(CONFIG_NOT_FOUND, "config missing")
	err2 := NewError(CONFIG_NOT_FOUND, "different message, same code")
	err3 := NewError(CONFIG_PARSE_FAILED, "config missing")

	if !errors.Is(err1, err2) {
		t.Errorf("errors with the same code should match via errors.Is()")
	}
	if errors.Is(err1, err3) {
		t.Errorf("errors with different codes should not match via errors.Is()")
	}
	if errors.Is(err1, errors.New("config missing")) {
		t.Errorf("plain errors should never match a typed Error")
	}
}

func TestError_IsThroughWrapping(t *testing.T) {
	inner := NewError(CONFIG_VALIDATION_FAILED, "bad field")
	outer := fmt.Errorf("loading config: %w", inner)

	if !errors.Is(outer, NewError(CONFIG_VALIDATION_FAILED, "")) {
		t.Errorf("errors.Is() should match the code through fmt.Errorf wrapping")
	}

	var typed *Error
	if !errors.As(outer, &typed) {
		t.Fatalf("errors.As() should extract the typed error")
	}
	if typed.Code != CONFIG_VALIDATION_FAILED {
		t.Errorf("extracted code = %v, want %v", typed.Code, CONFIG_VALIDATION_FAILED)
	}
}

func TestError_Retryable(t *testing.T) {
	if NewError(SCAN_ABORTED, "x").Retryable {
		t.Errorf("NewError should produce a non-retryable error")
	}
	if !NewRetryableError(SCAN_ABORTED, "x").Retryable {
		t.Errorf("NewRetryableError should produce a retryable error")
	}
	if WrapError(SCAN_ABORTED, "x", errors.New("y")).Retryable {
		t.Errorf("WrapError should produce a non-retryable error")
	}
	if !WrapRetryableError(SCAN_ABORTED, "x", errors.New("y")).Retryable {
		t.Errorf("WrapRetryableError should produce a retryable error")
	}
}
