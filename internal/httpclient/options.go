// Package httpclient provides the instrumented HTTP transport used for
// discovery queries, with a small GraphQL layer on top.
package httpclient

import (
	"net/http"
	"time"
)

type clientOptions struct {
	providerName   string
	roundTripper   http.RoundTripper
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	traceBodies    bool
}

// ClientOption configures NewInstrumentedClient.
type ClientOption func(*clientOptions)

// WithProviderName names the upstream in metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) {
		o.providerName = name
	}
}

// WithRoundTripper replaces the pooled transport. The OTEL wrapper is still applied.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.roundTripper = rt
	}
}

// WithRequestTimeout bounds each request end to end.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.requestTimeout = timeout
	}
}

// WithHeaders sets headers sent on every request, e.g. a hosted subgraph API key.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// WithBaseURL resolves relative request paths against url.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithTraceBodies records request and response bodies as span events.
func WithTraceBodies() ClientOption {
	return func(o *clientOptions) {
		o.traceBodies = true
	}
}

type requestOptions struct {
	errorHandler ResponseErrorHandler
	operation    string
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

// ResponseErrorHandler maps a response to an error, or nil if it is acceptable.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithResponseErrorHandler sets a custom error handler for responses.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(o *requestOptions) {
		o.errorHandler = handler
	}
}

// WithOperation tags the request's span and metrics with an operation name.
func WithOperation(name string) RequestOption {
	return func(o *requestOptions) {
		o.operation = name
	}
}
