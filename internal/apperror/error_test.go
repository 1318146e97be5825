package apperror_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fd1az/dex-sampler/internal/apperror"
)

func TestNew_Defaults(t *testing.T) {
	err := apperror.New(apperror.CodeDiscoveryFailed, apperror.WithContext("balancer-v2"))

	if err.Message != "pool discovery query failed" {
		t.Errorf("message = %q", err.Message)
	}
	if !err.Retryable {
		t.Error("discovery failures should be retryable")
	}
	if got := err.Error(); got != "DISCOVERY_FAILED: pool discovery query failed (balancer-v2)" {
		t.Errorf("Error() = %q", got)
	}

	unknown := apperror.New(apperror.Code("SOMETHING_ODD"))
	if unknown.Message != "something odd" || unknown.Retryable {
		t.Errorf("unregistered code = %+v", unknown)
	}
}

func TestAppError_Matching(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("round 12: %w", apperror.External(apperror.CodeEthereumRPCError, "eth_call", cause))

	if !errors.Is(err, apperror.New(apperror.CodeEthereumRPCError)) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, apperror.New(apperror.CodeDecodeFailed)) {
		t.Error("different codes must not match")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if got := apperror.GetCode(err); got != apperror.CodeEthereumRPCError {
		t.Errorf("GetCode = %s", got)
	}
	if got := apperror.GetCode(cause); got != apperror.CodeUnknownError {
		t.Errorf("GetCode(plain) = %s", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "cancelled", err: fmt.Errorf("sample: %w", context.Canceled), want: false},
		{name: "plain", err: errors.New("eof"), want: true},
		{name: "transient_code", err: apperror.New(apperror.CodeBatchCallFailed), want: true},
		{name: "permanent_code", err: apperror.New(apperror.CodeInvalidPoolRecord), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperror.IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogArgs(t *testing.T) {
	err := apperror.New(apperror.CodeSnapshotFailed,
		apperror.WithContext("redis"),
		apperror.WithCause(errors.New("timeout")))

	fields := map[string]any{}
	kv := apperror.LogArgs(err)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1]
	}

	if fields["error_code"] != "SNAPSHOT_FAILED" || fields["error_context"] != "redis" || fields["cause"] != "timeout" {
		t.Errorf("fields = %v", fields)
	}
	origin, _ := fields["origin"].(string)
	if !strings.Contains(origin, "error_test.go") {
		t.Errorf("origin = %q, want this file", origin)
	}

	plain := apperror.LogArgs(errors.New("boom"))
	if len(plain) != 2 || plain[0] != "error" {
		t.Errorf("plain = %v", plain)
	}
}
