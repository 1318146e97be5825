package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchainDomain "github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/business/monitor/domain"
	samplingApp "github.com/fd1az/dex-sampler/business/sampling/app"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-sampler/business/monitor/app"
	meterName  = "github.com/fd1az/dex-sampler/business/monitor/app"
)

// MonitorConfig holds configuration for the quote monitor.
type MonitorConfig struct {
	Pairs []domain.Pair
	// Amounts are whole taker-token units, e.g. 100 USDC.
	Amounts []decimal.Decimal
}

type monitorMetrics struct {
	rounds        metric.Int64Counter
	skipped       metric.Int64Counter
	roundDuration metric.Float64Histogram
}

// Monitor samples every configured pair once per block, pinned to that
// block, and hands the snapshots to a Reporter. A block arriving while the
// previous round is still running is skipped.
type Monitor struct {
	blocks   BlockSource
	sampler  QuoteSampler
	reporter Reporter
	config   MonitorConfig
	logger   logger.LoggerInterface

	busy atomic.Bool
	wg   sync.WaitGroup

	tracer  trace.Tracer
	metrics *monitorMetrics
}

// NewMonitor creates a new Monitor.
func NewMonitor(
	blocks BlockSource,
	sampler QuoteSampler,
	reporter Reporter,
	config MonitorConfig,
	log logger.LoggerInterface,
) (*Monitor, error) {
	if len(config.Pairs) == 0 {
		return nil, fmt.Errorf("monitor: no pairs configured")
	}
	if len(config.Amounts) == 0 {
		return nil, fmt.Errorf("monitor: no amounts configured")
	}

	m := &Monitor{
		blocks:   blocks,
		sampler:  sampler,
		reporter: reporter,
		config:   config,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return m, nil
}

func (m *Monitor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &monitorMetrics{}

	m.metrics.rounds, err = meter.Int64Counter(
		"monitor_rounds_total",
		metric.WithDescription("Blocks sampled"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return err
	}

	m.metrics.skipped, err = meter.Int64Counter(
		"monitor_rounds_skipped_total",
		metric.WithDescription("Blocks skipped because the previous round was still running"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return err
	}

	m.metrics.roundDuration, err = meter.Float64Histogram(
		"monitor_round_duration_ms",
		metric.WithDescription("Time to sample every pair for one block"),
		metric.WithUnit("ms"),
	)
	return err
}

// Start subscribes to blocks and begins sampling.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info(ctx, "starting quote monitor",
		"pairs", len(m.config.Pairs),
		"amounts", len(m.config.Amounts))

	if err := m.reporter.Start(ctx); err != nil {
		return err
	}

	blocks, err := m.blocks.SubscribeBlocks(ctx)
	if err != nil {
		m.reporter.UpdateConnectionStatus("Ethereum", false, 0)
		return err
	}
	m.reporter.UpdateConnectionStatus("Ethereum", true, 0)

	m.wg.Add(1)
	go m.run(ctx, blocks)

	return nil
}

func (m *Monitor) run(ctx context.Context, blocks <-chan *blockchainDomain.Block) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "monitor stopping", "reason", ctx.Err().Error())
			return
		case block, ok := <-blocks:
			if !ok {
				m.logger.Warn(ctx, "block feed closed")
				m.reporter.UpdateConnectionStatus("Ethereum", false, 0)
				return
			}
			if block == nil {
				continue
			}
			if !m.busy.CompareAndSwap(false, true) {
				m.metrics.skipped.Add(ctx, 1)
				m.logger.Warn(ctx, "previous round still running, block skipped", "number", block.Number)
				continue
			}
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				defer m.busy.Store(false)
				m.OnBlock(ctx, block)
			}()
		}
	}
}

// OnBlock samples every pair at block.
func (m *Monitor) OnBlock(ctx context.Context, block *blockchainDomain.Block) {
	ctx, span := m.tracer.Start(ctx, "monitor.round",
		trace.WithAttributes(attribute.Int64("block_number", int64(block.Number))))
	defer span.End()

	start := time.Now()
	m.reporter.UpdateBlock(block)
	st := m.blocks.ConnectionStatus()
	m.reporter.UpdateConnectionStatus("Ethereum", st.Connected(), block.Age(time.Now()))

	ctx = samplingApp.WithBlockNumber(ctx, block.BigNumber())

	for _, pair := range m.config.Pairs {
		if ctx.Err() != nil {
			return
		}
		snap, err := m.samplePair(ctx, block.Number, pair)
		if err != nil {
			m.logger.Error(ctx, "sampling pair failed", "pair", pair.String(), "error", err)
			m.reporter.ReportError(fmt.Errorf("%s: %w", pair, err))
			continue
		}
		m.reporter.Report(snap)
	}

	elapsed := time.Since(start)
	m.metrics.rounds.Add(ctx, 1)
	m.metrics.roundDuration.Record(ctx, float64(elapsed.Milliseconds()))
	m.logger.Debug(ctx, "block sampled", "number", block.Number, "duration_ms", elapsed.Milliseconds())
}

func (m *Monitor) samplePair(ctx context.Context, blockNumber uint64, pair domain.Pair) (*domain.Snapshot, error) {
	inputs := make([]asset.Amount, len(m.config.Amounts))
	raw := make([]*big.Int, len(m.config.Amounts))
	for i, a := range m.config.Amounts {
		amt, err := asset.ParseDecimal(pair.Taker, a)
		if err != nil {
			return nil, err
		}
		inputs[i] = amt
		raw[i] = amt.Raw()
	}

	start := time.Now()
	path := []common.Address{pair.Taker.Address(), pair.Maker.Address()}
	quotes := m.sampler.GetSellQuotes(ctx, path, raw)

	snap := domain.NewSnapshot(blockNumber, pair, inputs, quotes)
	snap.Duration = time.Since(start)
	return snap, nil
}

// Stop waits for the running round and shuts down the reporter.
func (m *Monitor) Stop() error {
	m.logger.Info(context.Background(), "stopping quote monitor")
	m.wg.Wait()
	return m.reporter.Stop()
}
