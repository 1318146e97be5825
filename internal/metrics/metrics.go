// Package metrics bootstraps the OpenTelemetry meter provider and its
// Prometheus and OTLP readers.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/dex-sampler/internal/logger"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

// Config selects metric readers. Prometheus and OTLP may be combined.
type Config struct {
	ServiceName  string
	Prometheus   bool
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	Insecure     bool
}

// NewMetricProvider builds the meter provider and installs it globally.
func NewMetricProvider(ctx context.Context, cfg Config) (MetricProvider, error) {
	var opts []sdkmetric.Option

	if cfg.Prometheus {
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(promExporter))
	}

	if cfg.OTLPEndpoint != "" {
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders),
		}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	opts = append(opts,
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))),
		sdkmetric.WithView(millisecondView),
	)

	meterProvider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// MillisecondBuckets span a cached multicall (a few ms) up to a round that
// hits the RPC timeout.
var MillisecondBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// millisecondView applies MillisecondBuckets to every *_ms histogram. The
// SDK defaults top out too early for sampling rounds.
func millisecondView(inst sdkmetric.Instrument) (sdkmetric.Stream, bool) {
	if inst.Kind != sdkmetric.InstrumentKindHistogram || !strings.HasSuffix(inst.Name, "_ms") {
		return sdkmetric.Stream{}, false
	}
	return sdkmetric.Stream{
		Name:        inst.Name,
		Description: inst.Description,
		Unit:        inst.Unit,
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: MillisecondBuckets},
	}, true
}

// PrometheusServer serves /metrics until Stop is called.
type PrometheusServer struct {
	server *http.Server
	log    logger.LoggerInterface
}

// NewPrometheusServer creates a /metrics server on port.
func NewPrometheusServer(port int, log logger.LoggerInterface) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &PrometheusServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start serves in the background.
func (s *PrometheusServer) Start(ctx context.Context) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(ctx, "prometheus metrics server failed", "addr", s.server.Addr, "error", err)
		}
	}()
	s.log.Info(ctx, "prometheus metrics server started", "addr", s.server.Addr)
}

// Stop shuts the server down.
func (s *PrometheusServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
