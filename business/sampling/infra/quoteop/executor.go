package quoteop

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-sampler/business/sampling/app"
	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/circuitbreaker"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/network"
	"github.com/fd1az/dex-sampler/internal/ratelimit"
)

const (
	tracerName = "quoteop"
	meterName  = "quoteop"
)

// Defaults.
const (
	DefaultBatchSize   = 64
	DefaultCallTimeout = 10 * time.Second
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Sampler is the ERC20BridgeSampler deployment every operation targets.
	Sampler common.Address
	// Multicall defaults to network.Multicall3Address.
	Multicall   common.Address
	BatchSize   int
	CallTimeout time.Duration
}

type executorMetrics struct {
	batches      metric.Int64Counter
	batchLatency metric.Float64Histogram
	operations   metric.Int64Counter
}

// Executor batches operations into Multicall3 aggregate3 calls.
type Executor struct {
	caller  app.Caller
	cfg     ExecutorConfig
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an executor. A nil limiter disables rate limiting.
func NewExecutor(caller app.Caller, cfg ExecutorConfig, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*Executor, error) {
	if cfg.Sampler == (common.Address{}) {
		return nil, apperror.Configuration(apperror.CodeConfigurationError, "sampler contract address is required")
	}
	if cfg.Multicall == (common.Address{}) {
		cfg.Multicall = network.Multicall3Address
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited("eth-rpc")
	}

	e := &Executor{
		caller:  caller,
		cfg:     cfg,
		limiter: limiter,
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("sampler-multicall")),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.batches, err = meter.Int64Counter(
		"sampler_batches_total",
		metric.WithDescription("aggregate3 batches by result"),
	)
	if err != nil {
		return err
	}

	e.metrics.batchLatency, err = meter.Float64Histogram(
		"sampler_batch_latency_ms",
		metric.WithDescription("aggregate3 round trip in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	e.metrics.operations, err = meter.Int64Counter(
		"sampler_operations_total",
		metric.WithDescription("Sampler operations by source and result"),
	)
	return err
}

// Execute runs ops and returns their results in the same order. Operations
// that revert, fail to decode or belong to a failed batch yield an empty
// slice; they never affect their siblings.
func (e *Executor) Execute(ctx context.Context, ops []*Operation) [][]domain.QuoteResult {
	results := make([][]domain.QuoteResult, len(ops))
	for i := range results {
		results[i] = []domain.QuoteResult{}
	}
	if len(ops) == 0 {
		return results
	}

	ctx, span := e.tracer.Start(ctx, "quoteop.execute",
		trace.WithAttributes(attribute.Int("operations", len(ops))))
	defer span.End()

	calls := make([]Call3, 0, len(ops))
	index := make([]int, 0, len(ops))
	for i, op := range ops {
		data, err := op.Encode()
		if err != nil {
			e.recordOp(ctx, op, "encode_error")
			e.logger.Warn(ctx, "failed to encode sampler operation", apperror.LogArgs(err)...)
			continue
		}
		calls = append(calls, Call3{Target: e.cfg.Sampler, AllowFailure: true, CallData: data})
		index = append(index, i)
	}

	for start := 0; start < len(calls); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(calls))
		e.executeChunk(ctx, ops, calls[start:end], index[start:end], results)
	}

	return results
}

func (e *Executor) executeChunk(ctx context.Context, ops []*Operation, calls []Call3, index []int, results [][]domain.QuoteResult) {
	returned, err := e.aggregate(ctx, calls)
	if err != nil {
		for _, i := range index {
			e.recordOp(ctx, ops[i], "batch_error")
		}
		e.logger.Warn(ctx, "sampler batch failed, dropping its operations",
			append([]any{"operations", len(calls)}, apperror.LogArgs(err)...)...)
		return
	}

	for j, i := range index {
		op := ops[i]
		res := returned[j]
		if !res.Success {
			e.recordOp(ctx, op, "reverted")
			results[i] = op.DecodeRevert(ctx, res.ReturnData)
			continue
		}
		decoded, err := op.Decode(res.ReturnData)
		if err != nil {
			e.recordOp(ctx, op, "decode_error")
			e.logger.Warn(ctx, "failed to decode sampler result", apperror.LogArgs(err)...)
			results[i] = op.DecodeRevert(ctx, res.ReturnData)
			continue
		}
		e.recordOp(ctx, op, "ok")
		results[i] = decoded
	}
}

// aggregate submits one aggregate3 call. The returned slice is aligned with calls.
func (e *Executor) aggregate(ctx context.Context, calls []Call3) ([]Result3, error) {
	block := app.BlockNumberFromContext(ctx)

	ctx, span := e.tracer.Start(ctx, "quoteop.aggregate3",
		trace.WithAttributes(attribute.Int("calls", len(calls))))
	defer span.End()
	if block != nil {
		span.SetAttributes(attribute.String("block", block.String()))
	}

	fail := func(err error) ([]Result3, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		e.metrics.batches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		return nil, err
	}

	data, err := multicallABI().Pack("aggregate3", calls)
	if err != nil {
		return fail(apperror.New(apperror.CodeEncodeFailed, apperror.WithCause(err), apperror.WithContext("aggregate3")))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return fail(apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err)))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	raw, err := e.cb.Execute(func() ([]byte, error) {
		return e.caller.CallContract(callCtx, ethereum.CallMsg{
			To:   &e.cfg.Multicall,
			Data: data,
		}, block)
	})
	e.metrics.batchLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			return fail(err)
		}
		return fail(apperror.New(apperror.CodeBatchCallFailed, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("aggregate3 with %d calls", len(calls)))))
	}

	values, err := multicallABI().Unpack("aggregate3", raw)
	if err != nil || len(values) != 1 {
		return fail(apperror.New(apperror.CodeDecodeFailed, apperror.WithCause(err), apperror.WithContext("aggregate3")))
	}
	returned := *abi.ConvertType(values[0], new([]Result3)).(*[]Result3)
	if len(returned) != len(calls) {
		return fail(apperror.New(apperror.CodeSampleMismatch,
			apperror.WithContext(fmt.Sprintf("aggregate3 returned %d results for %d calls", len(returned), len(calls)))))
	}

	e.metrics.batches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	span.SetStatus(codes.Ok, "batch executed")
	return returned, nil
}

func (e *Executor) recordOp(ctx context.Context, op *Operation, result string) {
	e.metrics.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", op.Source().String()),
		attribute.String("method", op.Method()),
		attribute.String("result", result),
	))
}
