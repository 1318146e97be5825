// Package balancerv2 samples Balancer V2 pools discovered through the
// Balancer subgraph. Only mainnet is supported.
package balancerv2

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/app"
	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/network"
)

// VaultAddress is the Balancer V2 vault on mainnet.
var VaultAddress = common.HexToAddress("0xba12222222228d8ba445958a75a0704d566bf2c8")

var _ app.SourceSampler = (*Sampler)(nil)

// PoolCache is the subset of *poolcache.PoolCache the sampler uses.
type PoolCache interface {
	GetCachedPoolsForPair(taker, maker common.Address) ([]domain.Pool, bool)
	FetchAndCachePoolsForPair(ctx context.Context, taker, maker common.Address) []domain.Pool
}

// Sampler quotes one operation per cached pool.
type Sampler struct {
	vault common.Address
	cache PoolCache
	deps  sources.Deps
}

// New creates the sampler for chain, which must be mainnet.
func New(chain network.Network, cache PoolCache, deps sources.Deps) (*Sampler, error) {
	if chain.ChainID != network.Mainnet {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithMessage("BalancerV2 is only available on mainnet"),
			apperror.WithContext(chain.String()))
	}
	if cache == nil {
		return nil, apperror.Configuration(apperror.CodeConfigurationError, "balancer v2 pool cache is required")
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{vault: VaultAddress, cache: cache, deps: deps}, nil
}

func (s *Sampler) Source() domain.Source { return domain.SourceBalancerV2 }

// CanConvertTokens only consults the cache: a pair is convertible once a
// refresh or Prefetch found at least one pool for it.
func (s *Sampler) CanConvertTokens(path []common.Address) bool {
	_, ok := s.pools(path)
	return ok
}

// Prefetch loads the pools of every pair missing from the cache.
func (s *Sampler) Prefetch(ctx context.Context, pairs []domain.PairKey) {
	for _, p := range pairs {
		s.cache.FetchAndCachePoolsForPair(ctx, p.Taker, p.Maker)
	}
}

func (s *Sampler) GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, takerAmounts, quoteop.MethodSellsFromBalancerV2)
}

func (s *Sampler) GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, makerAmounts, quoteop.MethodBuysFromBalancerV2)
}

func (s *Sampler) quote(ctx context.Context, path []common.Address, amounts []*big.Int, method string) [][]domain.QuoteSample {
	pools, ok := s.pools(path)
	if !ok {
		return [][]domain.QuoteSample{}
	}
	taker, maker := path[0], path[1]

	params := make([]quoteop.Params, len(pools))
	for i, pool := range pools {
		params[i] = quoteop.Params{
			Source: domain.SourceBalancerV2,
			Method: method,
			Args: []any{
				quoteop.BalancerV2PoolInfo{PoolId: pool.ID.Bytes32(), Vault: s.vault},
				taker,
				maker,
				amounts,
			},
			Shape:    quoteop.ShapeAmounts,
			FillData: domain.BalancerV2FillData{PoolID: pool.ID, Vault: s.vault},
		}
	}

	ops := sources.BuildOps(ctx, s.deps.Logger, params)
	return sources.Run(ctx, s.deps, domain.SourceBalancerV2, ops, amounts)
}

func (s *Sampler) pools(path []common.Address) ([]domain.Pool, bool) {
	taker, maker, ok := sources.Pair(path)
	if !ok {
		return nil, false
	}
	pools, ok := s.cache.GetCachedPoolsForPair(taker, maker)
	if !ok || len(pools) == 0 {
		return nil, false
	}
	return pools, true
}
