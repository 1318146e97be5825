// Package domain contains the core domain types for the monitor context.
package domain

import (
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	sampling "github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/asset"
)

// Pair is a monitored taker -> maker token pair.
type Pair struct {
	Taker *asset.Asset
	Maker *asset.Asset
}

func (p Pair) String() string {
	return p.Taker.Symbol() + "/" + p.Maker.Symbol()
}

// SourceQuote is one source's best output for every sampled amount.
type SourceQuote struct {
	Source sampling.Source
	// Sequences is the number of pools or registries that answered.
	Sequences int
	// Outputs holds the best maker amount per input amount; zero when no
	// sequence quoted that amount.
	Outputs []asset.Amount
}

// BestQuote is the best source for one input amount.
type BestQuote struct {
	Input  asset.Amount
	Source sampling.Source
	Output asset.Amount
	// Rate is maker units per taker unit.
	Rate decimal.Decimal
}

// Snapshot is the result of sampling one pair at one block.
type Snapshot struct {
	BlockNumber uint64
	Timestamp   time.Time
	Pair        Pair
	Inputs      []asset.Amount
	Sources     []SourceQuote // ordered by source name
	Best        []BestQuote   // one per input; Source is empty when nothing quoted
	Duration    time.Duration
}

// SampleCount returns the total number of sequences across sources.
func (s *Snapshot) SampleCount() int {
	n := 0
	for _, q := range s.Sources {
		n += q.Sequences
	}
	return n
}

// NewSnapshot reduces raw quote sequences to per-source and overall bests.
// Samples are matched to inputs by position; sequences of the wrong length
// are ignored.
func NewSnapshot(blockNumber uint64, pair Pair, inputs []asset.Amount, quotes map[sampling.Source][][]sampling.QuoteSample) *Snapshot {
	snap := &Snapshot{
		BlockNumber: blockNumber,
		Timestamp:   time.Now(),
		Pair:        pair,
		Inputs:      inputs,
		Best:        make([]BestQuote, len(inputs)),
	}
	for i, in := range inputs {
		snap.Best[i] = BestQuote{Input: in, Output: asset.Zero(pair.Maker), Rate: decimal.Zero}
	}

	sources := make([]sampling.Source, 0, len(quotes))
	for src := range quotes {
		sources = append(sources, src)
	}
	slices.SortFunc(sources, func(a, b sampling.Source) int {
		return strings.Compare(string(a), string(b))
	})

	for _, src := range sources {
		best := make([]*big.Int, len(inputs))
		sequences := 0
		for _, seq := range quotes[src] {
			if len(seq) != len(inputs) {
				continue
			}
			sequences++
			for i, sample := range seq {
				if sample.Output == nil || sample.Output.Sign() <= 0 {
					continue
				}
				if best[i] == nil || sample.Output.Cmp(best[i]) > 0 {
					best[i] = sample.Output
				}
			}
		}
		if sequences == 0 {
			continue
		}

		q := SourceQuote{Source: src, Sequences: sequences, Outputs: make([]asset.Amount, len(inputs))}
		for i, out := range best {
			if out == nil {
				q.Outputs[i] = asset.Zero(pair.Maker)
				continue
			}
			q.Outputs[i] = asset.NewAmount(pair.Maker, out)
			if out.Cmp(snap.Best[i].Output.Raw()) > 0 {
				snap.Best[i].Source = src
				snap.Best[i].Output = q.Outputs[i]
				snap.Best[i].Rate = asset.Rate(inputs[i], q.Outputs[i])
			}
		}
		snap.Sources = append(snap.Sources, q)
	}

	return snap
}
