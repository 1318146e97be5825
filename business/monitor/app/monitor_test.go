package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/business/monitor/domain"
	samplingApp "github.com/fd1az/dex-sampler/business/sampling/app"
	sampling "github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/logger"
)

var (
	usdc = asset.MustNewToken(1, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", "USD Coin", 6)
	dai  = asset.MustNewToken(1, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "DAI", "Dai", 18)
)

type stubBlocks struct {
	ch  chan *blockchainDomain.Block
	err error
}

func (s *stubBlocks) SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error) {
	return s.ch, s.err
}

func (s *stubBlocks) ConnectionStatus() blockchainDomain.ConnectionStatus {
	return blockchainDomain.ConnectionStatus{State: blockchainDomain.StateConnected}
}

type call struct {
	block   *big.Int
	path    []common.Address
	amounts []*big.Int
}

type stubSampler struct {
	mu      sync.Mutex
	calls   []call
	release chan struct{}
}

func (s *stubSampler) GetSellQuotes(ctx context.Context, path []common.Address, amounts []*big.Int) map[sampling.Source][][]sampling.QuoteSample {
	if s.release != nil {
		<-s.release
	}
	block := samplingApp.BlockNumberFromContext(ctx)
	s.mu.Lock()
	s.calls = append(s.calls, call{block: block, path: path, amounts: amounts})
	s.mu.Unlock()

	seq := make([]sampling.QuoteSample, len(amounts))
	for i, a := range amounts {
		// 1 USDC (6 decimals) -> 0.99 DAI (18 decimals)
		out := new(big.Int).Mul(a, big.NewInt(99e10))
		seq[i] = sampling.QuoteSample{Source: sampling.SourceMooniswap, Input: a, Output: out}
	}
	return map[sampling.Source][][]sampling.QuoteSample{sampling.SourceMooniswap: {seq}}
}

func (s *stubSampler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubReporter struct {
	mu        sync.Mutex
	snapshots []*domain.Snapshot
	blocks    []uint64
	errs      []error
	started   bool
	stopped   bool
}

func (r *stubReporter) Start(ctx context.Context) error { r.started = true; return nil }

func (r *stubReporter) Report(snap *domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
}

func (r *stubReporter) UpdateBlock(block *blockchainDomain.Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block.Number)
}

func (r *stubReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {}

func (r *stubReporter) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *stubReporter) Stop() error { r.stopped = true; return nil }

func (r *stubReporter) snapshotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func testConfig() MonitorConfig {
	return MonitorConfig{
		Pairs:   []domain.Pair{{Taker: usdc, Maker: dai}},
		Amounts: []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(100)},
	}
}

func TestNewMonitor_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config MonitorConfig
	}{
		{name: "no_pairs", config: MonitorConfig{Amounts: []decimal.Decimal{decimal.NewFromInt(1)}}},
		{name: "no_amounts", config: MonitorConfig{Pairs: []domain.Pair{{Taker: usdc, Maker: dai}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMonitor(&stubBlocks{}, &stubSampler{}, &stubReporter{}, tt.config, logger.NewNop())
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMonitor_OnBlock(t *testing.T) {
	sampler := &stubSampler{}
	reporter := &stubReporter{}
	m, err := NewMonitor(&stubBlocks{}, sampler, reporter, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	m.OnBlock(context.Background(), &blockchainDomain.Block{Number: 18_000_000, Timestamp: time.Now()})

	if len(sampler.calls) != 1 {
		t.Fatalf("sampler calls = %d, want 1", len(sampler.calls))
	}
	c := sampler.calls[0]
	if c.block == nil || c.block.Uint64() != 18_000_000 {
		t.Errorf("pinned block = %v, want 18000000", c.block)
	}
	if c.path[0] != usdc.Address() || c.path[1] != dai.Address() {
		t.Errorf("path = %v", c.path)
	}
	if c.amounts[0].Cmp(big.NewInt(1_000_000)) != 0 || c.amounts[1].Cmp(big.NewInt(100_000_000)) != 0 {
		t.Errorf("raw amounts = %v", c.amounts)
	}

	if len(reporter.blocks) != 1 || reporter.blocks[0] != 18_000_000 {
		t.Errorf("reported blocks = %v", reporter.blocks)
	}
	if len(reporter.snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(reporter.snapshots))
	}
	snap := reporter.snapshots[0]
	if snap.BlockNumber != 18_000_000 {
		t.Errorf("snapshot block = %d", snap.BlockNumber)
	}
	if snap.Best[1].Source != sampling.SourceMooniswap {
		t.Errorf("best source = %q", snap.Best[1].Source)
	}
	if got := snap.Best[1].Output.ToDecimal(); !got.Equal(decimal.NewFromInt(99)) {
		t.Errorf("best output = %s, want 99", got)
	}
}

func TestMonitor_StartAndStop(t *testing.T) {
	blocks := &stubBlocks{ch: make(chan *blockchainDomain.Block, 1)}
	sampler := &stubSampler{}
	reporter := &stubReporter{}
	m, err := NewMonitor(blocks, sampler, reporter, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reporter.started {
		t.Error("reporter not started")
	}

	blocks.ch <- &blockchainDomain.Block{Number: 1, Timestamp: time.Now()}

	deadline := time.After(2 * time.Second)
	for reporter.snapshotCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no snapshot reported")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !reporter.stopped {
		t.Error("reporter not stopped")
	}
}

func TestMonitor_SkipsBlockWhileBusy(t *testing.T) {
	blocks := &stubBlocks{ch: make(chan *blockchainDomain.Block)}
	sampler := &stubSampler{release: make(chan struct{})}
	reporter := &stubReporter{}
	m, err := NewMonitor(blocks, sampler, reporter, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Unbuffered: each send returns once run has taken the block.
	blocks.ch <- &blockchainDomain.Block{Number: 1, Timestamp: time.Now()}
	blocks.ch <- &blockchainDomain.Block{Number: 2, Timestamp: time.Now()}
	close(sampler.release)

	deadline := time.After(2 * time.Second)
	for reporter.snapshotCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no snapshot reported")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sampler.callCount(); got != 1 {
		t.Errorf("sampler calls = %d, want 1", got)
	}
	if reporter.snapshots[0].BlockNumber != 1 {
		t.Errorf("sampled block = %d, want 1", reporter.snapshots[0].BlockNumber)
	}
}

func TestMonitor_StartSubscribeError(t *testing.T) {
	m, err := NewMonitor(&stubBlocks{err: errors.New("dial failed")}, &stubSampler{}, &stubReporter{}, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
