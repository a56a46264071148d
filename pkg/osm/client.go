// Package osm provides utilities for working with OpenStreetMap data.
package osm

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

const (
	// DefaultUserAgent is the default User-Agent string
	DefaultUserAgent = UserAgent

	// DefaultRPS is the default request rate against the map API
	DefaultRPS = 1.0

	// DefaultBurst is the default burst size against the map API
	DefaultBurst = 2
)

// Client performs rate limited requests against the map API.
// It is safe for concurrent use; buildings resolved in parallel share one limiter.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu        sync.RWMutex
	userAgent string
}

// NewClient creates a client with connection pooling and the given rate limits.
// A nil httpClient selects a pooled default.
func NewClient(httpClient *http.Client, rps float64, burst int) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 30 * time.Second,
		}
	}
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     slog.Default(),
		userAgent:  DefaultUserAgent,
	}
}

// SetLogger sets the logger for the client
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// SetUserAgent sets the User-Agent string
func (c *Client) SetUserAgent(ua string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userAgent = ua
}

// UserAgent returns the current User-Agent string
func (c *Client) UserAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAgent
}

// UpdateRateLimits replaces the limiter settings
func (c *Client) UpdateRateLimits(rps float64, burst int) {
	c.limiter.SetLimit(rate.Limit(rps))
	c.limiter.SetBurst(burst)
}

// HTTPClient returns the underlying HTTP client
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// waitForRateLimit blocks until the limiter admits the request
func (c *Client) waitForRateLimit(ctx context.Context) (time.Duration, error) {
	if c.limiter.Allow() {
		return 0, nil
	}

	startWait := time.Now()
	tracing.AddEvent(ctx, "rate_limit_wait",
		trace.WithAttributes(
			attribute.String(tracing.AttrRateLimitService, tracing.ServiceMapAPI),
		),
	)

	err := c.limiter.Wait(ctx)

	waitDuration := time.Since(startWait)
	tracing.SetAttributes(ctx,
		attribute.String(tracing.AttrRateLimitService, tracing.ServiceMapAPI),
		attribute.Int64(tracing.AttrRateLimitWaitMs, waitDuration.Milliseconds()),
	)

	return waitDuration, err
}

// Do performs an HTTP request with rate limiting, the configured User-Agent
// and monitoring hooks. operation labels the request in metrics ("full", "map").
func (c *Client) Do(ctx context.Context, req *http.Request, operation string) (*http.Response, error) {
	service := tracing.ServiceMapAPI
	req.Header.Set("User-Agent", c.UserAgent())

	hooks := getMonitoringHooks()
	if hooks != nil && hooks.OnRequest != nil {
		hooks.OnRequest(service, operation)
	}

	waited, err := c.waitForRateLimit(ctx)
	if err != nil {
		if hooks != nil && hooks.OnError != nil {
			hooks.OnError(service, "rate_limit_wait_error")
		}
		return nil, err
	}
	if waited > 100*time.Millisecond && hooks != nil && hooks.OnRateLimit != nil {
		hooks.OnRateLimit(service, waited)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	duration := time.Since(start)

	success := err == nil && resp != nil && resp.StatusCode < 400
	if hooks != nil && hooks.OnResponse != nil {
		hooks.OnResponse(service, operation, duration, success)
	}
	if err != nil {
		if hooks != nil && hooks.OnError != nil {
			hooks.OnError(service, "request_error")
		}
		c.logger.Debug("map api request failed", "operation", operation, "url", req.URL.String(), "error", err)
		return nil, err
	}

	c.logger.Debug("map api request completed",
		"operation", operation,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", duration)
	return resp, nil
}
