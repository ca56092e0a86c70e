package llm

import (
	"encoding/json"
	"fmt"
)

// Role represents the role of a message in a conversation
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid value
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Role) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	role := Role(str)
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", str)
	}

	*r = role
	return nil
}

// Message is a single chat message. Field order matters: it is the wire
// shape sent to the endpoint and part of the cache fingerprint, so it must
// serialize identically for logically identical messages.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a new system message
func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message
func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
	}
}

// GenerateRequest describes a single prompt dispatch. Only Prompt is
// required; absent optional fields stay out of the request payload so they
// do not perturb the cache fingerprint.
type GenerateRequest struct {
	// Prompt becomes the user message.
	Prompt string

	// System, when non-empty, is prepended as a system message.
	System string

	// Tools is an opaque tool-spec list passed through to the endpoint.
	Tools []map[string]any

	// Metadata is an opaque mapping passed through to the endpoint.
	Metadata map[string]any

	// Temperature overrides the client default when set. A pointer so an
	// explicit 0.0 is expressible.
	Temperature *float64

	// MaxTokens overrides the client default when positive. Zero means
	// "use the default, or omit when no default is configured".
	MaxTokens int
}

// Validate checks if the request is dispatchable.
func (r GenerateRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", r.MaxTokens)
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", *r.Temperature)
	}
	return nil
}

// ResponseMeta describes how a result was obtained.
type ResponseMeta struct {
	// Cached is true when the result was served from the response cache
	// without a network call.
	Cached bool `json:"cached"`

	// CacheKey is the fingerprint the result is stored under.
	CacheKey string `json:"cache_key"`
}

// ResponseResult is the normalized outcome of a Generate call.
type ResponseResult struct {
	// OutputText is the best-effort normalized completion text. Empty when
	// the response shape is unrecognized; Raw still holds the full body.
	OutputText string `json:"output_text"`

	// Raw is the untouched parsed response body.
	Raw map[string]any `json:"raw"`

	Meta ResponseMeta `json:"meta"`
}
