// Package dodov1 samples DODO v1 pools through the DODO registry.
package dodov1

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

// Deployment is the DODO v1 registry and buy helper of one chain.
type Deployment struct {
	Registry common.Address
	Helper   common.Address
}

var deployments = map[network.ChainID]Deployment{
	network.Mainnet: {
		Registry: common.HexToAddress("0x3A97247DF274a17C59A3bd12735ea3FcDFb49950"),
		Helper:   common.HexToAddress("0x533da777aedce766ceae696bf90f8541a4ba80eb"),
	},
	network.BSC: {
		Registry: common.HexToAddress("0xca459456a45e300aa7ef447dbb60f87cccb42828"),
		Helper:   common.HexToAddress("0x0f859706aee7fcf61d5a8939e8cb9dbb6c1eda33"),
	},
	network.Polygon: {
		Registry: common.HexToAddress("0x357c5e9cfa8b834edcef7c7aabd8f9db09119d11"),
		Helper:   common.HexToAddress("0xdfaf9584f5d229a9dbe5978523317820a8897c5a"),
	},
}

// Lookup returns the deployment on chain.
func Lookup(chain network.ChainID) (Deployment, bool) {
	d, ok := deployments[chain]
	return d, ok
}

var _ app.SourceSampler = (*Sampler)(nil)

// Sampler issues a single directional operation per request; the sampler
// contract resolves the pool and its direction from the registry.
type Sampler struct {
	deployment Deployment
	deps       sources.Deps
}

func New(chain network.Network, deps sources.Deps) (*Sampler, error) {
	d, ok := Lookup(chain.ChainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork,
			apperror.WithContext("DODO is not deployed on "+chain.String()))
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{deployment: d, deps: deps}, nil
}

func (s *Sampler) Source() domain.Source { return domain.SourceDodo }

func (s *Sampler) CanConvertTokens(path []common.Address) bool {
	_, _, ok := sources.Pair(path)
	return ok
}

func (s *Sampler) GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, takerAmounts, quoteop.MethodSellsFromDODO)
}

func (s *Sampler) GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) [][]domain.QuoteSample {
	return s.quote(ctx, path, makerAmounts, quoteop.MethodBuysFromDODO)
}

func (s *Sampler) quote(ctx context.Context, path []common.Address, amounts []*big.Int, method string) [][]domain.QuoteSample {
	taker, maker, ok := sources.Pair(path)
	if !ok {
		return [][]domain.QuoteSample{}
	}

	helper := s.deployment.Helper
	ops := sources.BuildOps(ctx, s.deps.Logger, []quoteop.Params{{
		Source: domain.SourceDodo,
		Method: method,
		Args: []any{
			quoteop.DodoSamplerOpts{Registry: s.deployment.Registry, Helper: helper},
			taker,
			maker,
			amounts,
		},
		Shape: quoteop.ShapeDirectionalPoolAmounts,
		FillDataFunc: func(pool common.Address, isSellBase bool) domain.FillData {
			return domain.DodoFillData{Pool: pool, IsSellBase: isSellBase, Helper: helper}
		},
	}})
	return sources.Run(ctx, s.deps, domain.SourceDodo, ops, amounts)
}
