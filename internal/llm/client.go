package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zero-day-ai/redcell/internal/observability"
)

const (
	// completionsPath is the endpoint path appended to the configured base URL.
	completionsPath = "/chat/completions"

	defaultRequestTimeout = 120 * time.Second
	defaultRetryBackoff   = time.Second
)

// ClientConfig holds the dispatch parameters for a Client. Callers map it
// from the application configuration.
type ClientConfig struct {
	// BaseURL is the endpoint root, e.g. "http://localhost:8000/v1". The
	// completions path is appended to it.
	BaseURL string

	// APIKey, when non-empty, is sent as a bearer token.
	APIKey string

	// Model is the model identifier sent with every request and mixed into
	// every cache fingerprint.
	Model string

	// Temperature is the sampling temperature used when a request does not
	// override it.
	Temperature float64

	// MaxTokens caps completion length when positive. Zero omits the cap
	// unless a request overrides it.
	MaxTokens int

	// RequestTimeout bounds each network attempt.
	RequestTimeout time.Duration

	// RetryAttempts is the total number of attempts per dispatch, first
	// included.
	RetryAttempts int

	// RetryBackoff is the wait before the first retry; it doubles after
	// every failed attempt.
	RetryBackoff time.Duration

	// RateLimitPerMin and MaxConcurrent size the default limiter.
	RateLimitPerMin int
	MaxConcurrent   int
}

// Client dispatches chat completion requests to an OpenAI-compatible
// endpoint. Every dispatch passes through the same pipeline: fingerprint,
// cache lookup, rate-limited send with retry, response normalization, cache
// store. Client is safe for concurrent use.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *RateLimiter
	cache      Cache
	logger     *slog.Logger
	metrics    *observability.MetricsCollector

	initOnce sync.Once
}

// NewClient creates a dispatch client. Without options it runs uncached with
// a limiter sized from cfg and a no-op logger; the HTTP client is created
// lazily on first dispatch.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	c := &Client{
		cfg:    cfg,
		logger: observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(cfg.RateLimitPerMin, cfg.MaxConcurrent)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate dispatches one request and returns the normalized result.
//
// A cache hit short-circuits the network entirely; the returned result then
// carries Meta.Cached=true and the fingerprint it was served under. On a
// miss the request is sent under the rate limiter, retried with doubling
// backoff on transport failures and retry-eligible statuses, and the
// fully-formed result is stored back before returning. Definitive endpoint
// rejections fail fast without retry.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*ResponseResult, error) {
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError(err)
	}

	payload := c.buildPayload(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Errorf("failed to serialize payload: %w", err))
	}
	key := fingerprintBytes(c.cfg.Model, body)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.metrics.RecordCacheHit()
			c.logger.Debug("serving response from cache", "cache_key", key)
			result := *cached
			result.Meta = ResponseMeta{Cached: true, CacheKey: key}
			return &result, nil
		}
		c.metrics.RecordCacheMiss()
	}

	result, err := c.dispatch(ctx, body, key)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Put(key, result)
	}
	return result, nil
}

// buildPayload assembles the wire payload for a request, applying client
// defaults. Optional fields stay absent rather than empty so they do not
// disturb the fingerprint.
func (c *Client) buildPayload(req GenerateRequest) map[string]any {
	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, NewSystemMessage(req.System))
	}
	messages = append(messages, NewUserMessage(req.Prompt))

	temperature := c.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	payload := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"temperature": temperature,
	}

	maxTokens := c.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}

	if len(req.Tools) > 0 {
		payload["tools"] = req.Tools
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}
	return payload
}

// dispatch runs the retry loop around send until a terminal outcome.
func (c *Client) dispatch(ctx context.Context, body []byte, key string) (*ResponseResult, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + completionsPath
	backoff := c.cfg.RetryBackoff

	for attempt := 1; ; attempt++ {
		status, respBody, err := c.send(ctx, url, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, NewCanceledError(ctx.Err())
			}
			if attempt >= c.cfg.RetryAttempts {
				c.logger.Error("request failed, attempts exhausted",
					"attempts", attempt,
					"error", err)
				return nil, NewTransportError(attempt, err)
			}
			c.logger.Warn("request failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", err)
			c.metrics.RecordRetry()
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, NewCanceledError(err)
			}
			backoff *= 2
			continue
		}

		if status >= 200 && status < 300 {
			var raw map[string]any
			if err := json.Unmarshal(respBody, &raw); err != nil {
				return nil, NewResponseParseError(err)
			}
			return &ResponseResult{
				OutputText: extractOutputText(raw),
				Raw:        raw,
				Meta:       ResponseMeta{Cached: false, CacheKey: key},
			}, nil
		}

		if retryableStatus(status) {
			if attempt >= c.cfg.RetryAttempts {
				c.logger.Error("endpoint error, attempts exhausted",
					"attempts", attempt,
					"status", status)
				return nil, NewServerError(attempt, status, respBody)
			}
			c.logger.Warn("endpoint error, retrying",
				"attempt", attempt,
				"status", status,
				"backoff", backoff)
			c.metrics.RecordRetry()
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, NewCanceledError(err)
			}
			backoff *= 2
			continue
		}

		c.logger.Error("endpoint rejected request",
			"status", status,
			"body_bytes", len(respBody))
		return nil, NewClientError(status, respBody)
	}
}

// send performs one rate-limited attempt: POST the payload and read the full
// response body. The limiter admission is held only for the duration of the
// network exchange and always released.
func (c *Client) send(ctx context.Context, url string, body []byte) (int, []byte, error) {
	waitStart := time.Now()
	if err := c.limiter.Acquire(ctx); err != nil {
		return 0, nil, err
	}
	defer c.limiter.Release()
	c.metrics.RecordLimiterWait(time.Since(waitStart))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http().Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(0, time.Since(start))
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordRequest(0, time.Since(start))
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.metrics.RecordRequest(resp.StatusCode, time.Since(start))
	return resp.StatusCode, respBody, nil
}

// http returns the HTTP client, creating the default one on first use.
func (c *Client) http() *http.Client {
	c.initOnce.Do(func() {
		if c.httpClient == nil {
			c.httpClient = &http.Client{Timeout: c.cfg.RequestTimeout}
		}
	})
	return c.httpClient
}

// extractOutputText pulls the completion text out of a parsed response
// body. It tries the chat completions shape first, then a top-level "text"
// field, and settles for "" when neither matches.
func extractOutputText(raw map[string]any) string {
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content
				}
			}
		}
	}
	if text, ok := raw["text"].(string); ok {
		return text
	}
	return ""
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
