// Package ratelimit throttles calls to one upstream (an RPC node or a
// subgraph) and records how long callers were held back.
package ratelimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const meterName = "github.com/fd1az/dex-sampler/internal/ratelimit"

// Limiter is a token bucket shared by every caller of one upstream.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	waited  metric.Float64Histogram
	denied  metric.Int64Counter
}

// New creates a limiter for upstream name allowing rps requests per second
// with the given burst. A non-positive rps disables limiting.
func New(name string, rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}

	meter := otel.Meter(meterName)
	// Instrument creation only fails on invalid names.
	waited, _ := meter.Float64Histogram(
		"ratelimit_wait_ms",
		metric.WithDescription("Time spent waiting for an upstream token"),
		metric.WithUnit("ms"),
	)
	denied, _ := meter.Int64Counter(
		"ratelimit_denied_total",
		metric.WithDescription("Waits abandoned because the context ended first"),
	)

	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
		waited:  waited,
		denied:  denied,
	}
}

// Unlimited returns a limiter that never blocks.
func Unlimited(name string) *Limiter {
	return New(name, 0, 1)
}

// Wait blocks until a token is available or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	attrs := metric.WithAttributes(attribute.String("upstream", l.name))
	if err != nil {
		l.denied.Add(ctx, 1, attrs)
		return err
	}
	l.waited.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	return nil
}

// Allow reports whether a call may happen now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the upstream the limiter guards.
func (l *Limiter) Name() string {
	return l.name
}
