package httpclient

import (
	"context"
	"maps"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	instrumentationName = "github.com/fd1az/dex-sampler/internal/httpclient"
)

// Client builds instrumented requests.
type Client interface {
	NewRequest(opts ...RequestOption) Request
}

type instruments struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// InstrumentedClient wraps http.Client with OTEL tracing and request metrics.
type InstrumentedClient struct {
	client       *http.Client
	instruments  instruments
	providerName string
	tracer       trace.Tracer
	baseURL      string
	headers      map[string]string
	traceBodies  bool
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	options := &clientOptions{providerName: "default", requestTimeout: defaultRequestTimeout}
	for _, o := range opts {
		o(options)
	}

	transport := options.roundTripper
	if transport == nil {
		transport = &http.Transport{
			DialContext:     (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}

	httpClient := &http.Client{
		Timeout: options.requestTimeout,
		Transport: otelhttp.NewTransport(
			transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}

	meter := otel.Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", options.providerName)))

	var ins instruments
	var err error
	ins.requests, err = meter.Int64Counter(
		"http_client_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	ins.latency, err = meter.Float64Histogram(
		"http_client_request_duration_ms",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{
		client:       httpClient,
		instruments:  ins,
		providerName: options.providerName,
		tracer:       otel.Tracer(instrumentationName),
		baseURL:      options.baseURL,
		headers:      options.headers,
		traceBodies:  options.traceBodies,
	}, nil
}

// NewRequest creates a request builder.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	reqOpts := &requestOptions{}
	for _, o := range opts {
		o(reqOpts)
	}

	headers := make(map[string]string, len(c.headers))
	maps.Copy(headers, c.headers)

	return &requestBuilder{
		client:       c,
		headers:      headers,
		errorHandler: reqOpts.errorHandler,
		operation:    reqOpts.operation,
	}
}
