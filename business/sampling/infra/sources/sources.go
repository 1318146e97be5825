// Package sources holds what every venue sampler shares: its dependencies
// and the conversion from executed operations to quote samples.
package sources

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/logger"
)

// Executor runs quote operations in a batch. Satisfied by *quoteop.Executor.
type Executor interface {
	Execute(ctx context.Context, ops []*quoteop.Operation) [][]domain.QuoteResult
}

// Deps are the collaborators of every sampler.
type Deps struct {
	Executor Executor
	Logger   logger.LoggerInterface
}

// Validate reports missing dependencies.
func (d Deps) Validate() error {
	if d.Executor == nil {
		return apperror.Configuration(apperror.CodeConfigurationError, "sampler executor is required")
	}
	if d.Logger == nil {
		return apperror.Configuration(apperror.CodeConfigurationError, "sampler logger is required")
	}
	return nil
}

// Pair splits a two-token path into taker and maker.
func Pair(path []common.Address) (taker, maker common.Address, ok bool) {
	if len(path) != 2 {
		return common.Address{}, common.Address{}, false
	}
	return path[0], path[1], true
}

// Run executes ops and converts their results into samples, dropping the
// operations that produced nothing or a result of the wrong length.
func Run(ctx context.Context, deps Deps, source domain.Source, ops []*quoteop.Operation, amounts []*big.Int) [][]domain.QuoteSample {
	if len(ops) == 0 {
		return [][]domain.QuoteSample{}
	}
	return ToSamples(ctx, deps.Logger, source, amounts, deps.Executor.Execute(ctx, ops))
}

// ToSamples pairs each result set with the requested amounts.
func ToSamples(ctx context.Context, log logger.LoggerInterface, source domain.Source, amounts []*big.Int, results [][]domain.QuoteResult) [][]domain.QuoteSample {
	out := make([][]domain.QuoteSample, 0, len(results))
	for _, res := range results {
		if len(res) == 0 {
			continue
		}
		if len(res) != len(amounts) {
			log.Warn(ctx, "dropping samples with mismatched length",
				"source", source.String(),
				"code", string(apperror.CodeSampleMismatch),
				"want", len(amounts),
				"got", len(res))
			continue
		}
		samples := make([]domain.QuoteSample, len(amounts))
		for i, r := range res {
			samples[i] = domain.QuoteSample{
				Source:   source,
				FillData: r.FillData,
				Input:    amounts[i],
				Output:   r.Output,
			}
		}
		out = append(out, samples)
	}
	return out
}

// BuildOps creates one operation per params, logging and skipping invalid ones.
func BuildOps(ctx context.Context, log logger.LoggerInterface, params []quoteop.Params) []*quoteop.Operation {
	ops := make([]*quoteop.Operation, 0, len(params))
	for _, p := range params {
		if p.Logger == nil {
			p.Logger = log
		}
		op, err := quoteop.New(p)
		if err != nil {
			log.Error(ctx, "invalid sampler operation", apperror.LogArgs(err)...)
			continue
		}
		ops = append(ops, op)
	}
	return ops
}
