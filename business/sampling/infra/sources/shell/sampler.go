// Package shell samples the Shell protocol and the forks that share its
// pricing math behind a different pool registry: Component and mStable.
package shell

import (
	"context"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/app"
	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/network"
)

// Fork selects the pool registry and sampler entry point.
type Fork = domain.Source

const (
	ForkShell     Fork = domain.SourceShell
	ForkComponent Fork = domain.SourceComponent
	ForkMStable   Fork = domain.SourceMStable
)

var _ app.SourceSampler = (*Sampler)(nil)

// Sampler quotes one operation per pool holding every path token.
type Sampler struct {
	fork  Fork
	pools []Pool
	deps  sources.Deps
}

// New creates the sampler of fork on chain.
func New(chain network.Network, fork Fork, deps sources.Deps) (*Sampler, error) {
	switch fork {
	case ForkShell, ForkComponent, ForkMStable:
	default:
		return nil, apperror.New(apperror.CodeInvalidSourceFork,
			apperror.WithMessage("Invalid Shell fork: "+fork.String()))
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}

	pools, ok := Pools(fork, chain.ChainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithContext(fork.String()+" is not deployed on "+chain.String()))
	}

	return &Sampler{fork: fork, pools: pools, deps: deps}, nil
}

func (s *Sampler) Source() domain.Source { return s.fork }

func (s *Sampler) CanConvertTokens(path []common.Address) bool {
	return len(s.poolsFor(path)) > 0
}

func (s *Sampler) GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) [][]domain.QuoteSample {
	method := quoteop.MethodSellsFromShell
	if s.fork == ForkMStable {
		method = quoteop.MethodSellsFromMStable
	}
	return s.quote(ctx, path, takerAmounts, method)
}

func (s *Sampler) GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) [][]domain.QuoteSample {
	method := quoteop.MethodBuysFromShell
	if s.fork == ForkMStable {
		method = quoteop.MethodBuysFromMStable
	}
	return s.quote(ctx, path, makerAmounts, method)
}

func (s *Sampler) quote(ctx context.Context, path []common.Address, amounts []*big.Int, method string) [][]domain.QuoteSample {
	pools := s.poolsFor(path)
	if len(pools) == 0 {
		return [][]domain.QuoteSample{}
	}
	taker, maker := path[0], path[1]

	params := make([]quoteop.Params, len(pools))
	for i, pool := range pools {
		params[i] = quoteop.Params{
			Source:   s.fork,
			Method:   method,
			Args:     []any{pool.Address, taker, maker, amounts},
			Shape:    quoteop.ShapeAmounts,
			FillData: domain.PoolFillData{Pool: pool.Address},
		}
	}

	ops := sources.BuildOps(ctx, s.deps.Logger, params)
	return sources.Run(ctx, s.deps, s.fork, ops, amounts)
}

// poolsFor returns the pools trading every token of a two-token path.
func (s *Sampler) poolsFor(path []common.Address) []Pool {
	if _, _, ok := sources.Pair(path); !ok {
		return nil
	}
	var out []Pool
	for _, p := range s.pools {
		if containsAll(p.Tokens, path) {
			out = append(out, p)
		}
	}
	return out
}

func containsAll(set, tokens []common.Address) bool {
	for _, t := range tokens {
		if !slices.Contains(set, t) {
			return false
		}
	}
	return true
}
