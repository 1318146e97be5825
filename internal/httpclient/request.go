package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP request.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with the already-read body.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// IsError returns true if the status code indicates an error (>= 400).
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

type requestBuilder struct {
	client       *InstrumentedClient
	headers      map[string]string
	body         any
	result       any
	errorHandler ResponseErrorHandler
	operation    string
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

// SetBody sets the request body. Values other than []byte, string and
// io.Reader are JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetResult sets the destination for JSON decoding of a successful body.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) resolve(url string) string {
	base := r.client.baseURL
	if base == "" || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(url, "/")
}

func (r *requestBuilder) execute(ctx context.Context, method, url string) (*Response, error) {
	fullURL := r.resolve(url)
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.url", fullURL),
		attribute.String("provider", r.client.providerName),
	}
	if r.operation != "" {
		attrs = append(attrs, attribute.String("operation", r.operation))
	}

	ctx, span := r.client.tracer.Start(ctx, "http.request", trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	bodyReader, err := r.encodeBody(span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal body")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, start, err)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.recordError(ctx, span, start, err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if r.client.traceBodies {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body)),
		))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	response := &Response{Response: resp, body: body}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, body); handlerErr != nil {
			r.recordMetrics(ctx, start, false)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	if r.result != nil && !response.IsError() && len(body) > 0 {
		if err := json.Unmarshal(body, r.result); err != nil {
			r.recordError(ctx, span, start, err)
			return response, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	r.recordMetrics(ctx, start, !response.IsError())
	return response, nil
}

func (r *requestBuilder) encodeBody(span trace.Span) (io.Reader, error) {
	if r.body == nil {
		return nil, nil
	}

	var raw []byte
	switch b := r.body.(type) {
	case []byte:
		raw = b
	case string:
		raw = []byte(b)
	case io.Reader:
		return b, nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		raw = encoded
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
	}

	if r.client.traceBodies {
		span.AddEvent("request.body", trace.WithAttributes(
			attribute.String("http.request_body", string(raw)),
		))
	}
	return bytes.NewReader(raw), nil
}

func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, start time.Time, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, start, false)
}

func (r *requestBuilder) recordMetrics(ctx context.Context, start time.Time, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("provider", r.client.providerName),
		attribute.String("operation", r.operation),
		attribute.Bool("success", success),
	)
	r.client.instruments.requests.Add(ctx, 1, attrs)
	r.client.instruments.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}
