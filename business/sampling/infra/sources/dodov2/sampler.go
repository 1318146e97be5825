// Package dodov2 samples DODO v2 pools. Each factory can list any number of
// pools for a pair, so only the first few offsets of every factory are tried.
package dodov2

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

// DefaultMaxPoolsQueried is the number of offsets tried per factory.
const DefaultMaxPoolsQueried = 3

// Private pool, vending machine and stability pool factories per chain.
var factories = map[network.ChainID][]common.Address{
	network.Mainnet: {
		common.HexToAddress("0x6b4fa0bc61eddc928e0df9c7f01e407bfcd3e5ef"),
		common.HexToAddress("0x72d220ce168c4f361dd4dee5d826a01ad8598f6c"),
		common.HexToAddress("0x6fddb76c93299d985f4d3fc7ac468f9a168577a4"),
	},
	network.BSC: {
		common.HexToAddress("0xafe0a75dffb395eaabd0a7e1bbbd0b11f8609eef"),
		common.HexToAddress("0x790b4a80fb1094589a3c0efc8740aa9b0c1733fb"),
		common.HexToAddress("0x0fb9815938ad069bf90e14fe6c596c514bede767"),
	},
	network.Polygon: {
		common.HexToAddress("0x95e887adf9eaa22cc1c6e3cb7f07adc95b4b25a8"),
		common.HexToAddress("0x79887f65f83bdf15bcc8736b5e5bcdb48fb8fe13"),
		common.HexToAddress("0x43c49f8dd240e1545f147211ec9f917376ac1e87"),
	},
}

// Factories returns the factories deployed on chain.
func Factories(chain network.ChainID) ([]common.Address, bool) {
	f, ok := factories[chain]
	return f, ok && len(f) > 0
}

var _ app.SourceSampler = (*Sampler)(nil)

// Sampler issues one directional operation per (factory, offset).
type Sampler struct {
	factories []common.Address
	offsets   []*big.Int
	deps      sources.Deps
}

// New creates the sampler. A non-positive maxPoolsQueried uses the default.
func New(chain network.Network, maxPoolsQueried int, deps sources.Deps) (*Sampler, error) {
	f, ok := Factories(chain.ChainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithContext("DODO v2 is not deployed on "+chain.String()))
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if maxPoolsQueried <= 0 {
		maxPoolsQueried = DefaultMaxPoolsQueried
	}

	offsets := make([]*big.Int, maxPoolsQueried)
	for i := range offsets {
		offsets[i] = big.NewInt(int64(i))
	}
	return &Sampler{factories: f, offsets: offsets, deps: deps}, nil
}

func (s *Sampler) Source() domain.Source { return domain.SourceDodoV2 }

func (s *Sampler) CanConvertTokens(path []common.Address) bool {
	_, _, ok := sources.Pair(path)
	return ok
}

func (s *Sampler) GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, takerAmounts, quoteop.MethodSellsFromDODOV2)
}

func (s *Sampler) GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, makerAmounts, quoteop.MethodBuysFromDODOV2)
}

func (s *Sampler) quote(ctx context.Context, path []common.Address, amounts []*big.Int, method string) [][]domain.QuoteSample {
	taker, maker, ok := sources.Pair(path)
	if !ok {
		return [][]domain.QuoteSample{}
	}

	params := make([]quoteop.Params, 0, len(s.factories)*len(s.offsets))
	for _, factory := range s.factories {
		for _, offset := range s.offsets {
			params = append(params, quoteop.Params{
				Source:       domain.SourceDodoV2,
				Method:       method,
				Args:         []any{factory, offset, taker, maker, amounts},
				Shape:        quoteop.ShapeDirectionalPoolAmounts,
				FillDataFunc: fillData,
			})
		}
	}

	ops := sources.BuildOps(ctx, s.deps.Logger, params)
	return sources.Run(ctx, s.deps, domain.SourceDodoV2, ops, amounts)
}

func fillData(pool common.Address, isSellBase bool) domain.FillData {
	return domain.DodoV2FillData{Pool: pool, IsSellBase: isSellBase}
}
