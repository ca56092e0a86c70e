package llm

import (
	"log/slog"
	"net/http"

	"github.com/zero-day-ai/redcell/internal/observability"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient injects the HTTP client used for dispatch. The caller owns
// timeout configuration on an injected client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger injects the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCache injects the response cache. A nil cache disables caching; no
// cache is consulted or written without one.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLimiter injects the rate limiter. Defaults to a limiter built from the
// client configuration.
func WithLimiter(limiter *RateLimiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithMetrics injects the metrics collector. Defaults to none; a nil
// collector records nothing.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}
