// Package mooniswap samples Mooniswap pools through their registries.
// Mooniswap trades the native asset directly, so the wrapped native token is
// replaced by the zero address before querying.
package mooniswap

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

var registries = map[network.ChainID][]common.Address{
	network.Mainnet: {
		common.HexToAddress("0x71CD6666064C3A1354a3B4dca5fA1E2D3ee7D303"),
		common.HexToAddress("0xc4a8b7e29e3c8ec560cd4945c1cf3461a85a148d"),
		common.HexToAddress("0xbaf9a5d4b0052359326a6cdab54babaa3a3a9643"),
	},
	network.BSC: {
		common.HexToAddress("0xd41b24bba51fac0e4827b6f94c0d6ddeb183cd64"),
	},
}

// Registries returns the registries deployed on chain.
func Registries(chain network.ChainID) ([]common.Address, bool) {
	r, ok := registries[chain]
	return r, ok && len(r) > 0
}

var _ app.SourceSampler = (*Sampler)(nil)

// Sampler issues one operation per registry.
type Sampler struct {
	registries    []common.Address
	wrappedNative common.Address
	deps          sources.Deps
}

func New(chain network.Network, deps sources.Deps) (*Sampler, error) {
	r, ok := Registries(chain.ChainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithContext("Mooniswap is not deployed on "+chain.String()))
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{registries: r, wrappedNative: chain.WrappedNative, deps: deps}, nil
}

func (s *Sampler) Source() domain.Source { return domain.SourceMooniswap }

func (s *Sampler) CanConvertTokens(path []common.Address) bool {
	_, _, ok := sources.Pair(path)
	return ok && len(s.registries) > 0
}

func (s *Sampler) GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, takerAmounts, quoteop.MethodSellsFromMooniswap)
}

func (s *Sampler) GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, makerAmounts, quoteop.MethodBuysFromMooniswap)
}

func (s *Sampler) quote(ctx context.Context, path []common.Address, amounts []*big.Int, method string) [][]domain.QuoteSample {
	if !s.CanConvertTokens(path) {
		return [][]domain.QuoteSample{}
	}
	taker, maker := s.normalize(path[0]), s.normalize(path[1])

	params := make([]quoteop.Params, len(s.registries))
	for i, registry := range s.registries {
		params[i] = quoteop.Params{
			Source:       domain.SourceMooniswap,
			Method:       method,
			Args:         []any{registry, taker, maker, amounts},
			Shape:        quoteop.ShapePoolAmounts,
			FillDataFunc: fillData,
		}
	}

	ops := sources.BuildOps(ctx, s.deps.Logger, params)
	return sources.Run(ctx, s.deps, domain.SourceMooniswap, ops, amounts)
}

func (s *Sampler) normalize(token common.Address) common.Address {
	if token == s.wrappedNative {
		return common.Address{}
	}
	return token
}

func fillData(pool common.Address, _ bool) domain.FillData {
	return domain.PoolFillData{Pool: pool}
}
