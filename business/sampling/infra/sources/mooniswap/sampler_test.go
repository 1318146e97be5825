package mooniswap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop/quoteoptest"
	"github.com/fd1az/dex-sampler/business/sampling/infra/sources"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/network"
)

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

// perRegistryPool answers with a pool derived from the registry address.
func perRegistryPool(_ string, args []any) ([]any, error) {
	registry := args[0].(common.Address)
	pool := common.BytesToAddress(registry[:10])
	return []any{pool, quoteoptest.Scale(args[3].([]*big.Int), 2, 1)}, nil
}

func TestNew_NoRegistries(t *testing.T) {
	_, err := New(network.MustLookup(network.Polygon), sources.Deps{})
	if apperror.GetCode(err) != apperror.CodeUnsupportedNetwork {
		t.Errorf("err = %v, want %s", err, apperror.CodeUnsupportedNetwork)
	}
}

func TestGetSellQuotes_OnePerRegistry(t *testing.T) {
	s, caller := newSampler(t, network.Mainnet, perRegistryPool)

	in := amounts(10, 20, 30)
	got := s.GetSellQuotes(context.Background(), []common.Address{asset.USDC.Address(), asset.DAI.Address()}, in)

	regs, _ := Registries(network.Mainnet)
	if len(got) != len(regs) {
		t.Fatalf("got %d sequences, want %d", len(got), len(regs))
	}
	for i, seq := range got {
		wantPool := common.BytesToAddress(regs[i][:10])
		for j, sample := range seq {
			if sample.FillData != (domain.PoolFillData{Pool: wantPool}) {
				t.Errorf("seq %d fill data = %+v, want pool %s", i, sample.FillData, wantPool.Hex())
			}
			if sample.Output.Int64() != 2*in[j].Int64() {
				t.Errorf("seq %d output %d = %s", i, j, sample.Output)
			}
		}
	}
	for _, c := range caller.Calls() {
		if c.Method != quoteop.MethodSellsFromMooniswap {
			t.Errorf("method = %s", c.Method)
		}
	}
}

func TestWrappedNativeNormalized(t *testing.T) {
	tests := []struct {
		name      string
		chain     network.ChainID
		path      []common.Address
		wantTaker common.Address
		wantMaker common.Address
	}{
		{
			name:      "mainnet_weth_taker",
			chain:     network.Mainnet,
			path:      []common.Address{asset.WETH.Address(), asset.USDC.Address()},
			wantTaker: common.Address{},
			wantMaker: asset.USDC.Address(),
		},
		{
			name:      "bsc_wbnb_maker",
			chain:     network.BSC,
			path:      []common.Address{asset.BSCBUSD.Address(), asset.BSCWBNB.Address()},
			wantTaker: asset.BSCBUSD.Address(),
			wantMaker: common.Address{},
		},
		{
			name:      "no_native",
			chain:     network.Mainnet,
			path:      []common.Address{asset.DAI.Address(), asset.USDC.Address()},
			wantTaker: asset.DAI.Address(),
			wantMaker: asset.USDC.Address(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, caller := newSampler(t, tt.chain, perRegistryPool)
			s.GetBuyQuotes(context.Background(), tt.path, amounts(1))

			for _, c := range caller.Calls() {
				if c.Method != quoteop.MethodBuysFromMooniswap {
					t.Errorf("method = %s", c.Method)
				}
				if c.Args[1].(common.Address) != tt.wantTaker || c.Args[2].(common.Address) != tt.wantMaker {
					t.Errorf("taker/maker = %s/%s, want %s/%s",
						c.Args[1].(common.Address).Hex(), c.Args[2].(common.Address).Hex(),
						tt.wantTaker.Hex(), tt.wantMaker.Hex())
				}
			}
		})
	}
}

func TestInfeasiblePath(t *testing.T) {
	s, caller := newSampler(t, network.Mainnet, perRegistryPool)

	path := []common.Address{asset.USDC.Address()}
	if s.CanConvertTokens(path) {
		t.Error("single token path should not be convertible")
	}
	if got := s.GetSellQuotes(context.Background(), path, amounts(1)); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if caller.Batches() != 0 {
		t.Error("infeasible path reached the executor")
	}
}
