// Package poolcache keeps, per ordered token pair, a TTL-bounded list of
// candidate pools fed by a venue-specific Discovery service.
//
// Entries are written wholesale by a background warm refresh over the top
// pools and by on-demand per-pair fetches; both use the same TTL and the last
// write for a pair wins. Expired entries read as absent but are not deleted.
package poolcache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/cache"
	"github.com/fd1az/dex-sampler/internal/logger"
)

const (
	tracerName = "poolcache"
	meterName  = "poolcache"
)

// Defaults.
const (
	DefaultTTL             = 6 * time.Hour
	DefaultRefreshInterval = 12 * time.Hour
	DefaultMaxPoolsFetched = 3
	DefaultCallTimeout     = 30 * time.Second
)

// ErrAlreadyStarted is returned by Start on a running cache.
var ErrAlreadyStarted = errors.New("poolcache: already started")

// Discovery queries a venue's pool index.
type Discovery interface {
	// FetchTopPools returns the most significant pools of the venue.
	FetchTopPools(ctx context.Context) ([]domain.PoolRecord, error)
	// FetchPoolsForPair returns the pools trading taker -> maker.
	FetchPoolsForPair(ctx context.Context, taker, maker common.Address) ([]domain.Pool, error)
	// ParsePool extracts the taker -> maker view of rec.
	ParsePool(rec domain.PoolRecord, taker, maker common.Address) (domain.Pool, error)
}

// Entry is one pair's cached pools, as persisted by a Snapshotter.
type Entry struct {
	Pair      domain.PairKey `json:"pair"`
	Pools     []domain.Pool  `json:"pools"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Snapshotter persists entries across restarts.
type Snapshotter interface {
	Save(ctx context.Context, entries []Entry) error
	Load(ctx context.Context) ([]Entry, error)
}

// Config holds pool cache settings. Zero values take the defaults.
type Config struct {
	Name            string
	TTL             time.Duration
	RefreshInterval time.Duration
	MaxPoolsFetched int
	CallTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.MaxPoolsFetched <= 0 {
		c.MaxPoolsFetched = DefaultMaxPoolsFetched
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// Option configures a PoolCache.
type Option func(*options)

type options struct {
	clock       cache.Clock
	snapshotter Snapshotter
}

// WithClock overrides the time source used for expiry.
func WithClock(clock cache.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithSnapshotter restores entries on Start and saves them after each refresh.
func WithSnapshotter(s Snapshotter) Option {
	return func(o *options) {
		o.snapshotter = s
	}
}

type cacheMetrics struct {
	refreshes       metric.Int64Counter
	refreshDuration metric.Float64Histogram
	fetches         metric.Int64Counter
	parseErrors     metric.Int64Counter
}

// PoolCache is safe for concurrent use.
type PoolCache struct {
	cfg         Config
	discovery   Discovery
	entries     *cache.Cache[domain.PairKey, []domain.Pool]
	snapshotter Snapshotter
	logger      logger.LoggerInterface
	group       singleflight.Group

	refreshing atomic.Bool
	warmed     atomic.Bool

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	cycles    sync.WaitGroup

	tracer  trace.Tracer
	metrics *cacheMetrics
}

// New creates a pool cache. Call Start to begin background refreshes.
func New(discovery Discovery, cfg Config, log logger.LoggerInterface, opts ...Option) (*PoolCache, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.withDefaults()

	pc := &PoolCache{
		cfg:         cfg,
		discovery:   discovery,
		entries:     cache.New[domain.PairKey, []domain.Pool](cfg.TTL, cache.WithClock(o.clock)),
		snapshotter: o.snapshotter,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}
	if err := pc.initMetrics(); err != nil {
		return nil, err
	}
	return pc, nil
}

func (pc *PoolCache) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	pc.metrics = &cacheMetrics{}

	pc.metrics.refreshes, err = meter.Int64Counter(
		"poolcache_refreshes_total",
		metric.WithDescription("Warm refresh cycles by result"),
	)
	if err != nil {
		return err
	}

	pc.metrics.refreshDuration, err = meter.Float64Histogram(
		"poolcache_refresh_duration_ms",
		metric.WithDescription("Warm refresh duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	pc.metrics.fetches, err = meter.Int64Counter(
		"poolcache_fetches_total",
		metric.WithDescription("On-demand pair lookups by result (hit, miss, error, cancelled)"),
	)
	if err != nil {
		return err
	}

	pc.metrics.parseErrors, err = meter.Int64Counter(
		"poolcache_parse_errors_total",
		metric.WithDescription("Pool records skipped during warm refresh"),
	)
	return err
}

// GetCachedPoolsForPair reads the entry for taker -> maker without I/O.
// ok is false if the pair was never fetched or its entry expired; an empty
// slice with ok true means the pair is known to have no pools.
func (pc *PoolCache) GetCachedPoolsForPair(taker, maker common.Address) ([]domain.Pool, bool) {
	pools, ok := pc.entries.Get(context.Background(), domain.NewPairKey(taker, maker))
	if !ok {
		return nil, false
	}
	return clonePools(pools), true
}

// FetchAndCachePoolsForPair returns the cached pools for taker -> maker,
// querying discovery on a miss. Results are ranked by descending BalanceOut
// and capped at MaxPoolsFetched. Discovery failures cache and return an
// empty list.
//
// The shared query is detached from ctx and bounded by CallTimeout only. A
// caller whose ctx ends first gets an empty list and nothing is cached on its
// behalf.
func (pc *PoolCache) FetchAndCachePoolsForPair(ctx context.Context, taker, maker common.Address) []domain.Pool {
	if pools, ok := pc.GetCachedPoolsForPair(taker, maker); ok {
		pc.metrics.fetches.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cache", pc.cfg.Name), attribute.String("result", "hit")))
		return pools
	}
	if ctx.Err() != nil {
		return pc.abandoned(ctx)
	}

	pair := domain.NewPairKey(taker, maker)
	flightCtx := context.WithoutCancel(ctx)
	ch := pc.group.DoChan(pair.String(), func() (any, error) {
		return pc.fetchPair(flightCtx, pair), nil
	})

	select {
	case res := <-ch:
		return clonePools(res.Val.([]domain.Pool))
	case <-ctx.Done():
		return pc.abandoned(ctx)
	}
}

func (pc *PoolCache) abandoned(ctx context.Context) []domain.Pool {
	pc.metrics.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", pc.cfg.Name), attribute.String("result", "cancelled")))
	return []domain.Pool{}
}

func (pc *PoolCache) fetchPair(ctx context.Context, pair domain.PairKey) []domain.Pool {
	ctx, span := pc.tracer.Start(ctx, "poolcache.fetch_pair",
		trace.WithAttributes(
			attribute.String("cache", pc.cfg.Name),
			attribute.String("pair", pair.String()),
		),
	)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, pc.cfg.CallTimeout)
	defer cancel()

	result := "miss"
	pools, err := pc.discovery.FetchPoolsForPair(callCtx, pair.Taker, pair.Maker)
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		pc.logger.Warn(ctx, "pool discovery failed, caching empty pool list",
			"cache", pc.cfg.Name,
			"pair", pair.String(),
			"error", err)
		pools = nil
	}

	pools = rankPools(pools, pc.cfg.MaxPoolsFetched)
	pc.entries.Set(ctx, pair, pools)

	pc.metrics.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", pc.cfg.Name), attribute.String("result", result)))
	span.SetAttributes(attribute.Int("pools", len(pools)))

	return pools
}

// Refresh runs one warm refresh over the discovery's top pools. It returns
// false without doing anything if another refresh is in flight.
func (pc *PoolCache) Refresh(ctx context.Context) bool {
	if !pc.refreshing.CompareAndSwap(false, true) {
		pc.logger.Debug(ctx, "pool cache refresh already running, skipping", "cache", pc.cfg.Name)
		return false
	}
	defer pc.refreshing.Store(false)

	ctx, span := pc.tracer.Start(ctx, "poolcache.refresh",
		trace.WithAttributes(attribute.String("cache", pc.cfg.Name)))
	defer span.End()

	start := time.Now()
	defer func() {
		pc.metrics.refreshDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("cache", pc.cfg.Name)))
	}()

	callCtx, cancel := context.WithTimeout(ctx, pc.cfg.CallTimeout)
	records, err := pc.discovery.FetchTopPools(callCtx)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "top pools fetch failed")
		pc.metrics.refreshes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cache", pc.cfg.Name), attribute.String("result", "error")))
		pc.logger.Warn(ctx, "failed to load top pools",
			"cache", pc.cfg.Name,
			"error", err)
		return true
	}

	pairs := pc.loadRecords(ctx, records)

	pc.warmed.Store(true)
	pc.metrics.refreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", pc.cfg.Name), attribute.String("result", "ok")))
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("pairs", pairs),
	)
	pc.logger.Info(ctx, "pool cache refreshed",
		"cache", pc.cfg.Name,
		"records", len(records),
		"pairs", pairs)

	pc.saveSnapshot(ctx)
	return true
}

// loadRecords writes every ordered token pair of every record, accumulating
// pools per pair within the cycle. It returns the number of pairs written.
func (pc *PoolCache) loadRecords(ctx context.Context, records []domain.PoolRecord) int {
	acc := make(map[domain.PairKey][]domain.Pool)

	for _, rec := range records {
		tokens := make([]common.Address, 0, len(rec.TokensList))
		for _, t := range rec.TokensList {
			if !common.IsHexAddress(t) {
				pc.metrics.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", pc.cfg.Name)))
				pc.logger.Warn(ctx, "skipping invalid token address in pool record",
					"cache", pc.cfg.Name,
					"pool", rec.ID,
					"token", t)
				continue
			}
			tokens = append(tokens, common.HexToAddress(t))
		}

		for _, from := range tokens {
			for _, to := range tokens {
				if strings.EqualFold(from.Hex(), to.Hex()) {
					continue
				}
				pool, err := pc.discovery.ParsePool(rec, from, to)
				if err != nil {
					pc.metrics.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", pc.cfg.Name)))
					pc.logger.Warn(ctx, "failed to parse pool for pair",
						"cache", pc.cfg.Name,
						"pool", rec.ID,
						"taker", from.Hex(),
						"maker", to.Hex(),
						"error", err)
					continue
				}

				pair := domain.NewPairKey(from, to)
				acc[pair] = append(acc[pair], pool)
				pc.entries.Set(ctx, pair, clonePools(acc[pair]))
			}
		}
	}

	return len(acc)
}

// Start restores any snapshot, then refreshes immediately and every
// RefreshInterval until Stop or ctx cancellation.
func (pc *PoolCache) Start(ctx context.Context) error {
	pc.lifecycle.Lock()
	defer pc.lifecycle.Unlock()

	if pc.cancel != nil {
		return ErrAlreadyStarted
	}

	pc.restoreSnapshot(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	pc.cancel = cancel
	pc.done = make(chan struct{})

	go pc.run(runCtx, pc.done)

	pc.logger.Info(ctx, "pool cache started",
		"cache", pc.cfg.Name,
		"refresh_interval", pc.cfg.RefreshInterval.String(),
		"ttl", pc.cfg.TTL.String())
	return nil
}

func (pc *PoolCache) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(pc.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		// Each cycle runs in its own goroutine so a slow refresh cannot
		// delay the ticker; Refresh itself skips overlapping cycles.
		pc.cycles.Add(1)
		go func() {
			defer pc.cycles.Done()
			pc.Refresh(ctx)
		}()

		select {
		case <-ctx.Done():
			pc.cycles.Wait()
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the background refresh and waits for every cycle it started,
// including one still running from an earlier tick, to return.
func (pc *PoolCache) Stop() {
	pc.lifecycle.Lock()
	cancel, done := pc.cancel, pc.done
	pc.cancel, pc.done = nil, nil
	pc.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Len returns the number of pairs held, expired entries included.
func (pc *PoolCache) Len() int {
	return pc.entries.Len()
}

// Warmed reports whether a warm refresh or snapshot restore has completed.
func (pc *PoolCache) Warmed() bool {
	return pc.warmed.Load()
}

// Entries returns every non-expired entry.
func (pc *PoolCache) Entries() []Entry {
	var out []Entry
	pc.entries.Range(func(pair domain.PairKey, pools []domain.Pool, expiresAt time.Time) bool {
		out = append(out, Entry{Pair: pair, Pools: clonePools(pools), ExpiresAt: expiresAt})
		return true
	})
	return out
}

func (pc *PoolCache) saveSnapshot(ctx context.Context) {
	if pc.snapshotter == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, pc.cfg.CallTimeout)
	defer cancel()

	entries := pc.Entries()
	if err := pc.snapshotter.Save(saveCtx, entries); err != nil {
		pc.logger.Warn(ctx, "failed to save pool cache snapshot",
			"cache", pc.cfg.Name,
			"error", err)
		return
	}
	pc.logger.Debug(ctx, "pool cache snapshot saved", "cache", pc.cfg.Name, "pairs", len(entries))
}

func (pc *PoolCache) restoreSnapshot(ctx context.Context) {
	if pc.snapshotter == nil {
		return
	}
	loadCtx, cancel := context.WithTimeout(ctx, pc.cfg.CallTimeout)
	defer cancel()

	entries, err := pc.snapshotter.Load(loadCtx)
	if err != nil {
		pc.logger.Warn(ctx, "failed to load pool cache snapshot",
			"cache", pc.cfg.Name,
			"error", err)
		return
	}

	now := pc.entries.Now()
	restored := 0
	for _, e := range entries {
		if !now.Before(e.ExpiresAt) {
			continue
		}
		pools := e.Pools
		if pools == nil {
			pools = []domain.Pool{}
		}
		pc.entries.SetWithExpiry(ctx, e.Pair, clonePools(pools), e.ExpiresAt)
		restored++
	}
	if restored > 0 {
		pc.warmed.Store(true)
	}
	pc.logger.Info(ctx, "pool cache snapshot restored",
		"cache", pc.cfg.Name,
		"pairs", restored,
		"stale", len(entries)-restored)
}

// rankPools orders pools by descending BalanceOut and keeps at most max.
// The result is never nil.
func rankPools(pools []domain.Pool, max int) []domain.Pool {
	ranked := clonePools(pools)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].BalanceOut.GreaterThan(ranked[j].BalanceOut)
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

func clonePools(pools []domain.Pool) []domain.Pool {
	out := make([]domain.Pool, len(pools))
	copy(out, pools)
	return out
}
