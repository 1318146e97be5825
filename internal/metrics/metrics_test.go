package metrics

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestMillisecondView(t *testing.T) {
	tests := []struct {
		name  string
		inst  sdkmetric.Instrument
		match bool
	}{
		{name: "ms_histogram", inst: sdkmetric.Instrument{Name: "monitor_round_duration_ms", Kind: sdkmetric.InstrumentKindHistogram}, match: true},
		{name: "counter", inst: sdkmetric.Instrument{Name: "monitor_rounds_total", Kind: sdkmetric.InstrumentKindCounter}},
		{name: "other_histogram", inst: sdkmetric.Instrument{Name: "payload_bytes", Kind: sdkmetric.InstrumentKindHistogram}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, ok := millisecondView(tt.inst)
			if ok != tt.match {
				t.Fatalf("match = %v, want %v", ok, tt.match)
			}
			if !ok {
				return
			}
			agg, isHist := stream.Aggregation.(sdkmetric.AggregationExplicitBucketHistogram)
			if !isHist || len(agg.Boundaries) != len(MillisecondBuckets) {
				t.Errorf("aggregation = %#v", stream.Aggregation)
			}
			if stream.Name != tt.inst.Name {
				t.Errorf("name = %s", stream.Name)
			}
		})
	}
}

func TestNewMetricProvider_NoReaders(t *testing.T) {
	mp, err := NewMetricProvider(context.Background(), Config{ServiceName: "dex-sampler"})
	if err != nil {
		t.Fatalf("NewMetricProvider: %v", err)
	}
	h, err := mp.Meter("test").Float64Histogram("round_ms")
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	h.Record(context.Background(), 12)
	if err := mp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
