package domain

import (
	"math/big"
	"testing"

	sampling "github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/asset"
)

func usdc(n int64) asset.Amount {
	return asset.NewAmount(asset.USDC, new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000)))
}

func daiRaw(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func seq(src sampling.Source, inputs []asset.Amount, outs ...*big.Int) []sampling.QuoteSample {
	samples := make([]sampling.QuoteSample, len(outs))
	for i, out := range outs {
		samples[i] = sampling.QuoteSample{Source: src, Input: inputs[i].Raw(), Output: out}
	}
	return samples
}

func TestNewSnapshot(t *testing.T) {
	pair := Pair{Taker: asset.USDC, Maker: asset.DAI}
	inputs := []asset.Amount{usdc(100), usdc(1000)}

	quotes := map[sampling.Source][][]sampling.QuoteSample{
		sampling.SourceMooniswap: {
			seq(sampling.SourceMooniswap, inputs, daiRaw(99), daiRaw(980)),
			seq(sampling.SourceMooniswap, inputs, daiRaw(98), daiRaw(990)),
		},
		sampling.SourceBalancerV2: {
			seq(sampling.SourceBalancerV2, inputs, daiRaw(100), big.NewInt(0)),
			// Wrong length: ignored.
			seq(sampling.SourceBalancerV2, inputs, daiRaw(500)),
		},
		sampling.SourceDodo: {},
	}

	snap := NewSnapshot(19_000_000, pair, inputs, quotes)

	if snap.Pair.String() != "USDC/DAI" {
		t.Errorf("pair = %s", snap.Pair)
	}
	if len(snap.Sources) != 2 {
		t.Fatalf("sources = %d, want 2 (DODO had no sequences)", len(snap.Sources))
	}
	if snap.Sources[0].Source != sampling.SourceBalancerV2 || snap.Sources[1].Source != sampling.SourceMooniswap {
		t.Errorf("sources not ordered by name: %s, %s", snap.Sources[0].Source, snap.Sources[1].Source)
	}
	if snap.Sources[0].Sequences != 1 || snap.Sources[1].Sequences != 2 {
		t.Errorf("sequences = %d, %d", snap.Sources[0].Sequences, snap.Sources[1].Sequences)
	}
	if snap.SampleCount() != 3 {
		t.Errorf("SampleCount = %d, want 3", snap.SampleCount())
	}

	// Best Mooniswap output takes the max across its pools per amount.
	if got := snap.Sources[1].Outputs[1].Raw(); got.Cmp(daiRaw(990)) != 0 {
		t.Errorf("mooniswap best for 1000 USDC = %s", got)
	}
	// A zero output does not count as a quote.
	if !snap.Sources[0].Outputs[1].IsZero() {
		t.Errorf("balancer output for 1000 USDC = %s, want zero", snap.Sources[0].Outputs[1])
	}

	tests := []struct {
		name       string
		index      int
		wantSource sampling.Source
		wantRate   string
	}{
		{name: "small_amount", index: 0, wantSource: sampling.SourceBalancerV2, wantRate: "1"},
		{name: "large_amount", index: 1, wantSource: sampling.SourceMooniswap, wantRate: "0.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best := snap.Best[tt.index]
			if best.Source != tt.wantSource {
				t.Errorf("best source = %s, want %s", best.Source, tt.wantSource)
			}
			if best.Rate.String() != tt.wantRate {
				t.Errorf("rate = %s, want %s", best.Rate, tt.wantRate)
			}
		})
	}
}

func TestNewSnapshot_NoQuotes(t *testing.T) {
	pair := Pair{Taker: asset.USDC, Maker: asset.DAI}
	snap := NewSnapshot(1, pair, []asset.Amount{usdc(1)}, nil)

	if len(snap.Sources) != 0 || snap.SampleCount() != 0 {
		t.Errorf("unexpected sources %+v", snap.Sources)
	}
	if snap.Best[0].Source != "" || !snap.Best[0].Output.IsZero() {
		t.Errorf("best = %+v, want empty", snap.Best[0])
	}
}
