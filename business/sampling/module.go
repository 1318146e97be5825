// Package sampling implements the quote sampling bounded context: pool
// discovery, batched on-chain quoting and the per-venue samplers.
package sampling

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/dex-sampler/business/sampling/app"
	samplingDI "github.com/fd1az/dex-sampler/business/sampling/di"
	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/poolcache"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/business/sampling/infra/snapshot"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources/balancerv2"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources/dodov1"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources/dodov2"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources/mooniswap"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources/shell"
	"github.com/fd1az/dex-sampler/business/sampling/infra/subgraph"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/config"
	"github.com/fd1az/dex-sampler/internal/di"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/monolith"
	"github.com/fd1az/dex-sampler/internal/network"
	"github.com/fd1az/dex-sampler/internal/ratelimit"
)

// Module implements the sampling bounded context.
type Module struct{}

// RegisterServices registers all sampling services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Executor (private - shared by every sampler)
	di.RegisterToken(c, samplingDI.Executor, func(sr di.ServiceRegistry) *quoteop.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)
		chain := sr.Get("network").(network.Network)

		execCfg := quoteop.ExecutorConfig{
			Sampler:     cfg.Sampler.ContractAddressHex(),
			Multicall:   chain.Multicall3,
			BatchSize:   cfg.Sampler.BatchSize,
			CallTimeout: cfg.Sampler.CallTimeout,
		}
		limiter := ratelimit.New("eth-rpc", cfg.Sampler.RateLimitRPS, cfg.Sampler.RateBurst)

		exec, err := quoteop.NewExecutor(ethClient, execCfg, limiter, log)
		if err != nil {
			panic("failed to create sampler executor: " + err.Error())
		}
		return exec
	})

	// Register PoolCache (private - Balancer V2 discovery)
	di.RegisterToken(c, samplingDI.PoolCache, func(sr di.ServiceRegistry) *poolcache.PoolCache {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		chain := sr.Get("network").(network.Network)

		if !cfg.Sampler.SourceEnabled(config.SourceBalancerV2) || chain.ChainID != network.Mainnet {
			return nil
		}

		bv2 := cfg.Sampler.BalancerV2
		discovery, err := subgraph.NewBalancerV2(subgraph.BalancerV2Config{
			URL:             bv2.SubgraphURL,
			TopPoolsFetched: bv2.TopPoolsFetched,
			MaxPoolsFetched: bv2.MaxPoolsFetched,
			RequestTimeout:  bv2.DiscoveryTimeout,
			RateLimitRPS:    bv2.RateLimitRPS,
		}, log)
		if err != nil {
			panic("failed to create balancer v2 discovery: " + err.Error())
		}

		var opts []poolcache.Option
		if rdb, ok := sr.Get("redis").(*redis.Client); ok && rdb != nil {
			opts = append(opts, poolcache.WithSnapshotter(
				snapshot.NewRedisStore(rdb, cfg.Redis.KeyPrefix, string(domain.SourceBalancerV2))))
		}

		pc, err := poolcache.New(discovery, poolcache.Config{
			Name:            string(domain.SourceBalancerV2),
			TTL:             bv2.CacheTTL,
			RefreshInterval: bv2.RefreshInterval,
			MaxPoolsFetched: bv2.MaxPoolsFetched,
			CallTimeout:     bv2.DiscoveryTimeout,
		}, log, opts...)
		if err != nil {
			panic("failed to create balancer v2 pool cache: " + err.Error())
		}
		return pc
	})

	// Register SamplingService (public - exposed to other modules)
	di.RegisterToken(c, samplingDI.SamplingService, func(sr di.ServiceRegistry) *app.SamplingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		chain := sr.Get("network").(network.Network)

		deps := sources.Deps{
			Executor: samplingDI.GetExecutor(sr),
			Logger:   log,
		}
		samplers := buildSamplers(cfg, chain, deps, samplingDI.GetPoolCache(sr), log)
		return app.NewSamplingService(samplers...)
	})

	return nil
}

// buildSamplers creates a sampler for every enabled source. Sources that
// cannot run on chain are logged and skipped.
func buildSamplers(cfg *config.Config, chain network.Network, deps sources.Deps, pc *poolcache.PoolCache, log logger.LoggerInterface) []app.SourceSampler {
	ctx := context.Background()
	var samplers []app.SourceSampler

	add := func(name string, build func() (app.SourceSampler, error)) {
		if !cfg.Sampler.SourceEnabled(name) {
			return
		}
		s, err := build()
		if err != nil {
			log.Warn(ctx, "source disabled", "source", name, "network", chain.String(), "error", err)
			return
		}
		samplers = append(samplers, s)
	}

	add(config.SourceBalancerV2, func() (app.SourceSampler, error) {
		if pc == nil {
			return balancerv2.New(chain, nil, deps)
		}
		return balancerv2.New(chain, pc, deps)
	})
	add(config.SourceShell, func() (app.SourceSampler, error) {
		return shell.New(chain, shell.ForkShell, deps)
	})
	add(config.SourceComponent, func() (app.SourceSampler, error) {
		return shell.New(chain, shell.ForkComponent, deps)
	})
	add(config.SourceMStable, func() (app.SourceSampler, error) {
		return shell.New(chain, shell.ForkMStable, deps)
	})
	add(config.SourceDodo, func() (app.SourceSampler, error) {
		return dodov1.New(chain, deps)
	})
	add(config.SourceDodoV2, func() (app.SourceSampler, error) {
		return dodov2.New(chain, cfg.Sampler.DodoV2.MaxPoolsQueried, deps)
	})
	add(config.SourceMooniswap, func() (app.SourceSampler, error) {
		return mooniswap.New(chain, deps)
	})

	return samplers
}

// Shutdown stops the pool cache refresh and waits for an in-flight cycle, so
// its snapshot write completes before redis is closed.
func (m *Module) Shutdown(ctx context.Context, mono monolith.Monolith) error {
	if pc := samplingDI.GetPoolCache(mono.Services()); pc != nil {
		pc.Stop()
		mono.Logger().Info(ctx, "pool cache stopped", "pairs", pc.Len())
	}
	return nil
}

// Startup starts the pool cache and warms the monitored pairs.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := samplingDI.GetSamplingService(mono.Services())
	if len(svc.Samplers()) == 0 {
		return fmt.Errorf("no sampler source is available on %s", mono.Network())
	}

	pc := samplingDI.GetPoolCache(mono.Services())
	if pc != nil {
		if err := pc.Start(ctx); err != nil {
			return fmt.Errorf("start pool cache: %w", err)
		}
		mono.Health().RegisterCheck("pool_cache", func(context.Context) (bool, string) {
			if !pc.Warmed() {
				return false, "warming up"
			}
			return true, fmt.Sprintf("%d pairs cached", pc.Len())
		})

		pairs := monitoredPairs(ctx, mono.Config(), mono.AssetRegistry(), mono.Network(), log)
		for _, s := range svc.Samplers() {
			if p, ok := s.(interface {
				Prefetch(context.Context, []domain.PairKey)
			}); ok {
				go p.Prefetch(ctx, pairs)
			}
		}
	}

	log.Info(ctx, "sampling module started",
		"network", mono.Network().String(),
		"sources", fmt.Sprint(svc.Sources()))
	return nil
}

// monitoredPairs resolves monitor.pairs in both directions.
func monitoredPairs(ctx context.Context, cfg *config.Config, reg *asset.Registry, chain network.Network, log logger.LoggerInterface) []domain.PairKey {
	var pairs []domain.PairKey
	for _, p := range cfg.Monitor.Pairs {
		takerSym, makerSym, err := config.ParsePair(p)
		if err != nil {
			continue
		}
		taker, maker, err := reg.Pair(uint64(chain.ChainID), takerSym, makerSym)
		if err != nil {
			log.Warn(ctx, "skipping monitor pair", "pair", p, "network", chain.String(), "error", err.Error())
			continue
		}
		key := domain.NewPairKey(taker.Address(), maker.Address())
		pairs = append(pairs, key, key.Reverse())
	}
	return pairs
}
