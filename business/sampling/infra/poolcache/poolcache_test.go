package poolcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/logger"
)

var (
	tokenA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	tokenC = common.HexToAddress("0x000000000000000000000000000000000000000c")
)

// stubDiscovery is a hand-written Discovery.
type stubDiscovery struct {
	mu          sync.Mutex
	top         []domain.PoolRecord
	topErr      error
	pairPools   map[domain.PairKey][]domain.Pool
	pairErr     error
	parseErr    func(rec domain.PoolRecord, taker, maker common.Address) error
	topCalls    atomic.Int32
	pairCalls   atomic.Int32
	topStarted  chan struct{}
	releaseTop  chan struct{}
	holdTop     chan struct{} // blocks FetchTopPools regardless of ctx
	pairRelease chan struct{}
}

func (s *stubDiscovery) FetchTopPools(ctx context.Context) ([]domain.PoolRecord, error) {
	s.topCalls.Add(1)
	if s.topStarted != nil {
		s.topStarted <- struct{}{}
	}
	if s.holdTop != nil {
		<-s.holdTop
	}
	if s.releaseTop != nil {
		select {
		case <-s.releaseTop:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.top, s.topErr
}

func (s *stubDiscovery) FetchPoolsForPair(ctx context.Context, taker, maker common.Address) ([]domain.Pool, error) {
	s.pairCalls.Add(1)
	if s.pairRelease != nil {
		<-s.pairRelease
	}
	if s.pairErr != nil {
		return nil, s.pairErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairPools[domain.NewPairKey(taker, maker)], nil
}

func (s *stubDiscovery) ParsePool(rec domain.PoolRecord, taker, maker common.Address) (domain.Pool, error) {
	if s.parseErr != nil {
		if err := s.parseErr(rec, taker, maker); err != nil {
			return domain.Pool{}, err
		}
	}
	id, err := domain.ParsePoolKey(rec.ID)
	if err != nil {
		return domain.Pool{}, err
	}
	return domain.Pool{ID: id, BalanceIn: decimal.NewFromInt(1), BalanceOut: decimal.NewFromInt(1)}, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func pool(id string, balanceOut int64) domain.Pool {
	key, _ := domain.ParsePoolKey(id)
	return domain.Pool{ID: key, BalanceIn: decimal.NewFromInt(1), BalanceOut: decimal.NewFromInt(balanceOut)}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestCache(t *testing.T, d Discovery, clock *fakeClock, cfg Config, opts ...Option) *PoolCache {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	pc, err := New(d, cfg, logger.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pc
}

func TestFetchAndCache_RanksAndCaps(t *testing.T) {
	d := &stubDiscovery{pairPools: map[domain.PairKey][]domain.Pool{
		domain.NewPairKey(tokenA, tokenB): {
			pool("0x01", 10), pool("0x02", 50), pool("0x03", 30), pool("0x04", 40), pool("0x05", 20),
		},
	}}
	pc := newTestCache(t, d, newFakeClock(), Config{MaxPoolsFetched: 3})

	got := pc.FetchAndCachePoolsForPair(context.Background(), tokenA, tokenB)

	want := []int64{50, 40, 30}
	if len(got) != len(want) {
		t.Fatalf("got %d pools, want %d", len(got), len(want))
	}
	for i, w := range want {
		if !got[i].BalanceOut.Equal(decimal.NewFromInt(w)) {
			t.Errorf("pool[%d] balanceOut = %s, want %d", i, got[i].BalanceOut, w)
		}
	}

	cached, ok := pc.GetCachedPoolsForPair(tokenA, tokenB)
	if !ok || len(cached) != 3 {
		t.Errorf("cached = %v (ok=%v), want 3 pools", cached, ok)
	}
}

func TestFetchAndCache_Freshness(t *testing.T) {
	d := &stubDiscovery{pairPools: map[domain.PairKey][]domain.Pool{
		domain.NewPairKey(tokenA, tokenB): {pool("0x01", 1)},
	}}
	clock := newFakeClock()
	pc := newTestCache(t, d, clock, Config{TTL: time.Hour})
	ctx := context.Background()

	pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB)
	clock.Advance(59 * time.Minute)
	pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB)

	if got := d.pairCalls.Load(); got != 1 {
		t.Fatalf("discovery calls before expiry = %d, want 1", got)
	}

	clock.Advance(time.Minute)
	if _, ok := pc.GetCachedPoolsForPair(tokenA, tokenB); ok {
		t.Error("entry should read as absent at expiry")
	}

	pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB)
	if got := d.pairCalls.Load(); got != 2 {
		t.Errorf("discovery calls after expiry = %d, want 2", got)
	}
}

func TestFetchAndCache_Directionality(t *testing.T) {
	d := &stubDiscovery{pairPools: map[domain.PairKey][]domain.Pool{
		domain.NewPairKey(tokenA, tokenB): {pool("0x01", 1)},
	}}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	pc.FetchAndCachePoolsForPair(context.Background(), tokenA, tokenB)

	if _, ok := pc.GetCachedPoolsForPair(tokenB, tokenA); ok {
		t.Error("reverse pair should not be cached")
	}
}

func TestFetchAndCache_DiscoveryFailureCachesEmpty(t *testing.T) {
	d := &stubDiscovery{pairErr: errors.New("subgraph down")}
	pc := newTestCache(t, d, newFakeClock(), Config{})
	ctx := context.Background()

	got := pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB)
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}

	cached, ok := pc.GetCachedPoolsForPair(tokenA, tokenB)
	if !ok || len(cached) != 0 {
		t.Errorf("cached = %v (ok=%v), want known-empty", cached, ok)
	}

	pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB)
	if got := d.pairCalls.Load(); got != 1 {
		t.Errorf("discovery calls = %d, want 1", got)
	}
}

func TestFetchAndCache_CancelledCallerCachesNothing(t *testing.T) {
	d := &stubDiscovery{pairPools: map[domain.PairKey][]domain.Pool{
		domain.NewPairKey(tokenA, tokenB): {pool("0x01", 1)},
	}}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB); len(got) != 0 {
		t.Errorf("cancelled caller got %v, want empty", got)
	}
	if _, ok := pc.GetCachedPoolsForPair(tokenA, tokenB); ok {
		t.Error("cancelled lookup left an entry behind")
	}

	if got := pc.FetchAndCachePoolsForPair(context.Background(), tokenA, tokenB); len(got) != 1 {
		t.Errorf("later caller got %d pools, want 1", len(got))
	}
}

func TestFetchAndCache_CallerCancelledMidFlight(t *testing.T) {
	d := &stubDiscovery{
		pairPools: map[domain.PairKey][]domain.Pool{
			domain.NewPairKey(tokenA, tokenB): {pool("0x01", 1)},
		},
		pairRelease: make(chan struct{}),
	}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan []domain.Pool, 1)
	go func() { result <- pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB) }()

	eventually(t, func() bool { return d.pairCalls.Load() == 1 })
	cancel()

	select {
	case got := <-result:
		if len(got) != 0 {
			t.Errorf("cancelled caller got %v, want empty", got)
		}
	case <-time.After(time.Second):
		t.Fatal("caller did not return after its context was cancelled")
	}

	// The shared query outlives the caller and caches what discovery returns.
	close(d.pairRelease)
	eventually(t, func() bool {
		_, ok := pc.GetCachedPoolsForPair(tokenA, tokenB)
		return ok
	})
	if got, _ := pc.GetCachedPoolsForPair(tokenA, tokenB); len(got) != 1 {
		t.Errorf("cached %d pools, want 1", len(got))
	}
}

func TestFetchAndCache_ConcurrentMissesShareOneQuery(t *testing.T) {
	d := &stubDiscovery{
		pairPools: map[domain.PairKey][]domain.Pool{
			domain.NewPairKey(tokenA, tokenB): {pool("0x01", 1)},
		},
		pairRelease: make(chan struct{}),
	}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := pc.FetchAndCachePoolsForPair(context.Background(), tokenA, tokenB); len(got) != 1 {
				t.Errorf("got %d pools, want 1", len(got))
			}
		}()
	}

	// Let the goroutines pile up on the in-flight query before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(d.pairRelease)
	wg.Wait()

	if got := d.pairCalls.Load(); got > 2 {
		t.Errorf("discovery calls = %d, want concurrent misses collapsed", got)
	}
}

func TestFetchAndCache_ReturnsCopies(t *testing.T) {
	d := &stubDiscovery{pairPools: map[domain.PairKey][]domain.Pool{
		domain.NewPairKey(tokenA, tokenB): {pool("0x01", 1)},
	}}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	got := pc.FetchAndCachePoolsForPair(context.Background(), tokenA, tokenB)
	got[0].BalanceOut = decimal.NewFromInt(999)

	cached, _ := pc.GetCachedPoolsForPair(tokenA, tokenB)
	if cached[0].BalanceOut.Equal(decimal.NewFromInt(999)) {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestRefresh_AllOrderedPairs(t *testing.T) {
	d := &stubDiscovery{top: []domain.PoolRecord{
		{ID: "0x01", TokensList: []string{tokenA.Hex(), tokenB.Hex(), tokenC.Hex()}},
		{ID: "0x02", TokensList: []string{tokenA.Hex(), tokenB.Hex()}},
	}}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	if !pc.Refresh(context.Background()) {
		t.Fatal("Refresh skipped")
	}

	tests := []struct {
		name  string
		taker common.Address
		maker common.Address
		want  int
	}{
		{"a_to_b_accumulates_both_pools", tokenA, tokenB, 2},
		{"b_to_a_accumulates_both_pools", tokenB, tokenA, 2},
		{"a_to_c", tokenA, tokenC, 1},
		{"c_to_b", tokenC, tokenB, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pc.GetCachedPoolsForPair(tt.taker, tt.maker)
			if !ok || len(got) != tt.want {
				t.Errorf("got %d pools (ok=%v), want %d", len(got), ok, tt.want)
			}
		})
	}

	if _, ok := pc.GetCachedPoolsForPair(tokenA, tokenA); ok {
		t.Error("self pair should never be cached")
	}
	if pc.Len() != 6 {
		t.Errorf("Len = %d, want 6", pc.Len())
	}
	if !pc.Warmed() {
		t.Error("cache should be warmed after refresh")
	}
}

func TestRefresh_SkipsUnparseablePairs(t *testing.T) {
	d := &stubDiscovery{
		top: []domain.PoolRecord{
			{ID: "0x01", TokensList: []string{tokenA.Hex(), tokenB.Hex(), "not-an-address"}},
		},
		parseErr: func(_ domain.PoolRecord, taker, _ common.Address) error {
			if taker == tokenB {
				return errors.New("zero balance")
			}
			return nil
		},
	}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	pc.Refresh(context.Background())

	if _, ok := pc.GetCachedPoolsForPair(tokenA, tokenB); !ok {
		t.Error("a->b should be cached")
	}
	if _, ok := pc.GetCachedPoolsForPair(tokenB, tokenA); ok {
		t.Error("b->a failed to parse and should be absent")
	}
}

func TestRefresh_TopPoolsFailure(t *testing.T) {
	d := &stubDiscovery{topErr: errors.New("timeout")}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	if !pc.Refresh(context.Background()) {
		t.Fatal("Refresh skipped")
	}
	if pc.Len() != 0 || pc.Warmed() {
		t.Errorf("Len = %d, Warmed = %v; want empty, cold cache", pc.Len(), pc.Warmed())
	}
}

func TestRefresh_SkipsOverlappingCycles(t *testing.T) {
	d := &stubDiscovery{
		topStarted: make(chan struct{}, 1),
		releaseTop: make(chan struct{}),
	}
	pc := newTestCache(t, d, newFakeClock(), Config{})

	done := make(chan bool)
	go func() { done <- pc.Refresh(context.Background()) }()
	<-d.topStarted

	if pc.Refresh(context.Background()) {
		t.Error("overlapping refresh should be skipped")
	}

	close(d.releaseTop)
	if !<-done {
		t.Error("first refresh should have run")
	}
	if got := d.topCalls.Load(); got != 1 {
		t.Errorf("top pool calls = %d, want 1", got)
	}
}

func TestRefresh_OverwritesOnDemandEntry(t *testing.T) {
	d := &stubDiscovery{
		pairPools: map[domain.PairKey][]domain.Pool{
			domain.NewPairKey(tokenA, tokenB): {pool("0x09", 1), pool("0x08", 2)},
		},
		top: []domain.PoolRecord{
			{ID: "0x01", TokensList: []string{tokenA.Hex(), tokenB.Hex()}},
		},
	}
	pc := newTestCache(t, d, newFakeClock(), Config{})
	ctx := context.Background()

	pc.FetchAndCachePoolsForPair(ctx, tokenA, tokenB)
	pc.Refresh(ctx)

	got, _ := pc.GetCachedPoolsForPair(tokenA, tokenB)
	if len(got) != 1 || got[0].ID.Hex() != domain.PoolKeyFromAddress(common.HexToAddress("0x01")).Hex() {
		t.Errorf("got %v, want the refreshed pool only", got)
	}
}

func TestStartStop(t *testing.T) {
	d := &stubDiscovery{
		top:        []domain.PoolRecord{{ID: "0x01", TokensList: []string{tokenA.Hex(), tokenB.Hex()}}},
		topStarted: make(chan struct{}, 4),
	}
	pc := newTestCache(t, d, newFakeClock(), Config{RefreshInterval: time.Hour})

	if err := pc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := pc.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	select {
	case <-d.topStarted:
	case <-time.After(time.Second):
		t.Fatal("no immediate refresh after Start")
	}

	pc.Stop()
	pc.Stop()

	if got := d.topCalls.Load(); got != 1 {
		t.Errorf("top pool calls = %d, want 1", got)
	}
}

func TestStop_WaitsForRunningRefresh(t *testing.T) {
	d := &stubDiscovery{
		topStarted: make(chan struct{}, 8),
		holdTop:    make(chan struct{}),
	}
	pc := newTestCache(t, d, newFakeClock(), Config{RefreshInterval: 5 * time.Millisecond})

	if err := pc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-d.topStarted:
	case <-time.After(time.Second):
		t.Fatal("no immediate refresh after Start")
	}

	// Several ticks pass while the first refresh is still blocked.
	time.Sleep(30 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		pc.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(d.holdTop)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the refresh finished")
	}

	if pc.refreshing.Load() {
		t.Error("refresh still marked in flight after Stop")
	}
}

// memSnapshotter keeps entries in memory.
type memSnapshotter struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
}

func (m *memSnapshotter) Save(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.saves++
	return nil
}

func (m *memSnapshotter) Load(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

func TestSnapshot_SaveAndRestore(t *testing.T) {
	clock := newFakeClock()
	snap := &memSnapshotter{}
	d := &stubDiscovery{top: []domain.PoolRecord{
		{ID: "0x01", TokensList: []string{tokenA.Hex(), tokenB.Hex()}},
	}}

	first := newTestCache(t, d, clock, Config{TTL: time.Hour}, WithSnapshotter(snap))
	first.Refresh(context.Background())
	if snap.saves != 1 || len(snap.entries) != 2 {
		t.Fatalf("saves = %d, entries = %d; want 1 save of 2 entries", snap.saves, len(snap.entries))
	}

	// A stale entry must not be restored.
	snap.entries = append(snap.entries, Entry{
		Pair:      domain.NewPairKey(tokenA, tokenC),
		Pools:     []domain.Pool{pool("0x02", 1)},
		ExpiresAt: clock.Now().Add(-time.Second),
	})

	second := newTestCache(t, &stubDiscovery{}, clock, Config{TTL: time.Hour}, WithSnapshotter(snap))
	second.restoreSnapshot(context.Background())

	if !second.Warmed() {
		t.Error("restored cache should be warmed")
	}
	if _, ok := second.GetCachedPoolsForPair(tokenA, tokenB); !ok {
		t.Error("a->b should be restored")
	}
	if _, ok := second.GetCachedPoolsForPair(tokenA, tokenC); ok {
		t.Error("stale a->c should not be restored")
	}

	clock.Advance(time.Hour)
	if _, ok := second.GetCachedPoolsForPair(tokenA, tokenB); ok {
		t.Error("restored entry should keep its original expiry")
	}
}
