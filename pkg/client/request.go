package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"resty.dev/v3"
)

// do sends one request and returns the response body of a 2xx answer.
// Other statuses are mapped to pgcache error types.
func (c *Client) do(ctx context.Context, op, method, path string, build func(*resty.Request)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCanceled(op, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "client."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	req := c.resty.R().SetContext(ctx).SetDoNotParseResponse(true)
	if build != nil {
		build(req)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		err = requestError(ctx, op, err)
		tracing.SetSpanError(ctx, err)
		c.logFailure(op, method, path, 0, start, err)
		return nil, err
	}

	body, err := readBody(resp)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, err
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err := statusError(status, body); err != nil {
		if !errors.IsNotFound(err) {
			tracing.SetSpanError(ctx, err)
			c.logFailure(op, method, path, status, start, err)
		}
		return nil, err
	}

	c.logger.Debug().
		Str(logging.Operation, op).
		Str(logging.Method, method).
		Str(logging.Path, path).
		Int(logging.StatusCode, status).
		Int64(logging.Duration, time.Since(start).Milliseconds()).
		Msg("request completed")
	return body, nil
}

func (c *Client) logFailure(op, method, path string, status int, start time.Time, err error) {
	event := c.logger.Warn()
	if errors.IsCanceled(err) || errors.IsInvalidInput(err) {
		event = c.logger.Debug()
	}
	event.
		Err(err).
		Str(logging.Operation, op).
		Str(logging.Method, method).
		Str(logging.Path, path).
		Int(logging.StatusCode, status).
		Int64(logging.Duration, time.Since(start).Milliseconds()).
		Msg("request failed")
}

func readBody(resp *resty.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTemporary("failed to read response body", err)
	}
	return body, nil
}

// requestError maps transport failures. Everything except cancellation is
// assumed to be transient.
func requestError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.NewCanceled(op, ctx.Err())
	}
	if errors.IsCanceled(err) {
		return errors.NewCanceled(op, err)
	}
	return errors.NewTemporary(op+" request failed", err)
}

// statusError is the inverse of errors.HTTPStatusCode.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := fmt.Sprintf("HTTP %d", status)
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		msg += ": " + text
	}

	switch {
	case status == http.StatusNotFound:
		return errors.NewNotFound("cache entry", msg)
	case status == http.StatusBadRequest:
		return errors.NewInvalidInput("request", msg)
	case status == http.StatusRequestEntityTooLarge:
		return errors.NewInvalidInput("value", msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewUnauthorized(msg)
	case status == errors.StatusClientClosedRequest:
		return errors.NewCanceled("request", nil)
	case retryableStatus(status):
		return errors.NewTemporary(msg, nil)
	default:
		return errors.NewPermanent(msg, nil)
	}
}
