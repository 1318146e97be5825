package apm_test

import (
	"context"
	"testing"

	"github.com/fd1az/dex-sampler/internal/apm"
	"github.com/fd1az/dex-sampler/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]string
	}{
		{raw: "", want: map[string]string{}},
		{raw: "x-honeycomb-team=abc", want: map[string]string{"x-honeycomb-team": "abc"}},
		{raw: "a=1, b=2", want: map[string]string{"a": "1", "b": "2"}},
		{raw: "broken,a=1", want: map[string]string{"a": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := apm.ParseHeaders(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("header %s: expected %q, got %q", k, v, got[k])
				}
			}
		})
	}
}

func TestNewTraceProvider_UnknownFallsBackToEmpty(t *testing.T) {
	tp := apm.NewTraceProvider(context.Background(), logger.NewNop(), apm.Config{Provider: "jaeger"})
	if err := tp.Stop(); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}
}
