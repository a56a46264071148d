package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

// RetryOptions configures retry behavior for HTTP requests
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions provides sensible defaults for retries
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

// RequestFactory creates a fresh request for every attempt
type RequestFactory func(ctx context.Context) (*http.Request, error)

// WithRetry performs requests created by factory through client with
// exponential backoff. Only a 200 response is returned; other statuses are
// mapped with ServiceError. NOT_FOUND and INVALID_INPUT are not retried.
func WithRetry(ctx context.Context, client *osm.Client, factory RequestFactory, operation string, options RetryOptions) (*http.Response, error) {
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = 1
	}

	ctx, span := tracing.StartSpan(ctx, "http.request "+operation,
		trace.WithAttributes(
			attribute.String(tracing.AttrFetchOperation, operation),
			attribute.Int("http.retry.max_attempts", options.MaxAttempts),
		),
	)
	defer span.End()

	logger := slog.Default().With("operation", operation)
	var lastErr error
	delay := options.InitialDelay

	for attempt := 0; attempt < options.MaxAttempts; attempt++ {
		if attempt > 0 {
			tracing.AddEvent(ctx, "retry_attempt",
				trace.WithAttributes(
					attribute.Int("attempt", attempt+1),
					attribute.Int64("delay_ms", delay.Milliseconds()),
					attribute.String("error", fmt.Sprintf("%v", lastErr)),
				),
			)

			logger.Info("retrying request",
				"attempt", attempt+1,
				"max_attempts", options.MaxAttempts,
				"delay", delay,
				"last_error", lastErr,
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}

			delay = time.Duration(float64(delay) * options.Multiplier)
			if delay > options.MaxDelay {
				delay = options.MaxDelay
			}
		}

		req, err := factory(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "request creation failed")
			return nil, NewError(ErrInternalError, "failed to create request").WithCause(err)
		}
		span.SetAttributes(
			attribute.String(tracing.AttrHTTPMethod, req.Method),
			attribute.String(tracing.AttrFetchURL, req.URL.String()),
		)

		resp, err := client.Do(ctx, req, operation)
		if err == nil && resp.StatusCode == http.StatusOK {
			span.SetAttributes(
				attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode),
				attribute.Int("http.retry.attempts", attempt+1),
			)
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}

		if err != nil {
			if ctx.Err() != nil {
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}
			lastErr = NewError(ErrNetworkError, "request failed").WithCause(err)
			logger.Warn("request failed", "error", err, "attempt", attempt+1, "url", req.URL.String())
		} else {
			lastErr = ServiceError(tracing.ServiceMapAPI, resp.StatusCode, fmt.Sprintf("HTTP status %d", resp.StatusCode))
			logger.Warn("request returned error status",
				"status", resp.StatusCode,
				"attempt", attempt+1,
				"url", req.URL.String(),
			)
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", "error", err)
			}
		}

		if !retryable(lastErr) {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "request failed")
	return nil, lastErr
}
