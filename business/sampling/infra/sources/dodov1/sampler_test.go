package dodov1

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop/quoteoptest"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/network"
)

var dodoPool = common.HexToAddress("0xC9f93163c99695c6526b799EbcA2207Fdf7D61aD")

func amounts(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func newSampler(t *testing.T, chain network.ChainID, h quoteoptest.Handler) (*Sampler, *quoteoptest.Caller) {
	t.Helper()
	caller := quoteoptest.New(h)
	exec, err := quoteop.NewExecutor(caller, quoteop.ExecutorConfig{Sampler: common.HexToAddress("0x5a5")}, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	s, err := New(network.MustLookup(chain), sources.Deps{Executor: exec, Logger: logger.NewNop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, caller
}

func TestLookup_EveryNetwork(t *testing.T) {
	for _, id := range []network.ChainID{network.Mainnet, network.BSC, network.Polygon} {
		d, ok := Lookup(id)
		if !ok || d.Registry == (common.Address{}) || d.Helper == (common.Address{}) {
			t.Errorf("chain %d: deployment = %+v, ok = %v", id, d, ok)
		}
	}
}

func TestGetSellQuotes_DirectionalFillData(t *testing.T) {
	dep, _ := Lookup(network.Mainnet)

	s, caller := newSampler(t, network.Mainnet, func(method string, args []any) ([]any, error) {
		opts := *abi.ConvertType(args[0], new(quoteop.DodoSamplerOpts)).(*quoteop.DodoSamplerOpts)
		if opts != (quoteop.DodoSamplerOpts{Registry: dep.Registry, Helper: dep.Helper}) {
			t.Errorf("opts = %+v", opts)
		}
		return []any{true, dodoPool, quoteoptest.Scale(args[3].([]*big.Int), 3000, 1)}, nil
	})

	in := amounts(1, 2)
	path := []common.Address{asset.WETH.Address(), asset.USDC.Address()}
	got := s.GetSellQuotes(context.Background(), path, in)

	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("got %v, want one sequence of 2", got)
	}
	for i, sample := range got[0] {
		want := domain.DodoFillData{Pool: dodoPool, IsSellBase: true, Helper: dep.Helper}
		if sample.FillData != want {
			t.Errorf("fill data = %+v, want %+v", sample.FillData, want)
		}
		if sample.Output.Int64() != in[i].Int64()*3000 {
			t.Errorf("output[%d] = %s", i, sample.Output)
		}
	}
	if m := caller.Calls()[0].Method; m != quoteop.MethodSellsFromDODO {
		t.Errorf("method = %s", m)
	}
}

func TestGetBuyQuotes(t *testing.T) {
	s, caller := newSampler(t, network.BSC, func(method string, args []any) ([]any, error) {
		return []any{false, dodoPool, args[3].([]*big.Int)}, nil
	})

	got := s.GetBuyQuotes(context.Background(), []common.Address{asset.BSCBUSD.Address(), asset.BSCWBNB.Address()}, amounts(10))

	if len(got) != 1 || got[0][0].FillData.(domain.DodoFillData).IsSellBase {
		t.Errorf("got %+v", got)
	}
	if m := caller.Calls()[0].Method; m != quoteop.MethodBuysFromDODO {
		t.Errorf("method = %s", m)
	}
}

func TestRevertAndInfeasiblePath(t *testing.T) {
	s, caller := newSampler(t, network.Polygon, func(string, []any) ([]any, error) {
		return nil, errors.New("DODO_NOT_FOUND")
	})

	if got := s.GetSellQuotes(context.Background(), []common.Address{asset.PolygonWETH.Address(), asset.PolygonUSDC.Address()}, amounts(1)); len(got) != 0 {
		t.Errorf("reverted sells = %v, want empty", got)
	}

	batches := caller.Batches()
	long := []common.Address{asset.PolygonWETH.Address(), asset.PolygonDAI.Address(), asset.PolygonUSDC.Address()}
	if s.CanConvertTokens(long) {
		t.Error("three token path should not be convertible")
	}
	if got := s.GetBuyQuotes(context.Background(), long, amounts(1)); len(got) != 0 {
		t.Errorf("buys = %v, want empty", got)
	}
	if caller.Batches() != batches {
		t.Error("infeasible path reached the executor")
	}
}
