// Package client talks to a pgcache HTTP API. It wraps the resty library
// with retries for transient failures, optional client-side rate limiting,
// trace propagation and mapping of HTTP statuses back to pgcache error types.
//
// Example usage:
//
//	c, err := client.New(config.ClientConfig{
//	    ServerURL: "http://cache.internal:8080",
//	    Token:     os.Getenv("PGCACHE_TOKEN"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	err = c.Set(ctx, "session:42", payload, cache.Sliding(20*time.Minute))
//	value, ok, err := c.Get(ctx, "session:42")
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// Client is a pgcache HTTP API client. It is safe for concurrent use.
type Client struct {
	resty   *resty.Client
	config  config.ClientConfig
	limiter *rate.Limiter
	logger  *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger logs every completed request at debug level and failures at warn.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.WithComponent("client")
		}
	}
}

// New creates a client for the server at cfg.ServerURL.
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	cfg = applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	r := resty.New().
		SetBaseURL(cfg.ServerURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.RetryMaxWaitTime).
		SetHeader("User-Agent", "pgcache-client")
	r.AddRetryConditions(func(res *resty.Response, err error) bool {
		if err != nil {
			return !errors.IsCanceled(err)
		}
		return retryableStatus(res.StatusCode())
	})
	if cfg.Token != "" {
		r.SetAuthToken(cfg.Token)
	}

	c := &Client{
		resty:  r,
		config: cfg,
		logger: logging.NewNop(),
	}
	if cfg.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.resty.Close()
	return nil
}

// ServerURL returns the base URL requests are sent to.
func (c *Client) ServerURL() string {
	return c.config.ServerURL
}

// wait blocks until the rate limiter admits a request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	// Wait also fails early when the deadline would pass before a token frees up.
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewCanceled("rate limit wait", err)
	}
	return nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func applyDefaults(cfg config.ClientConfig) config.ClientConfig {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryWaitTime == 0 {
		cfg.RetryWaitTime = 200 * time.Millisecond
	}
	if cfg.RetryMaxWaitTime == 0 {
		cfg.RetryMaxWaitTime = 2 * time.Second
	}
	if cfg.RateLimitBurst == 0 && cfg.RateLimitPerSecond > 0 {
		cfg.RateLimitBurst = 1
	}
	return cfg
}

func validateConfig(cfg config.ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.NewInvalidInput("server_url", "is required")
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewInvalidInput("server_url", fmt.Sprintf("%q is not an absolute URL", cfg.ServerURL))
	}
	if cfg.Timeout < 0 {
		return errors.NewInvalidInput("timeout", "must not be negative")
	}
	if cfg.RetryCount < 0 {
		return errors.NewInvalidInput("retry_count", "must not be negative")
	}
	if cfg.RateLimitPerSecond < 0 {
		return errors.NewInvalidInput("rate_limit_per_second", "must not be negative")
	}
	return nil
}
