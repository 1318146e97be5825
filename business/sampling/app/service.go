package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
)

const tracerName = "github.com/fd1az/dex-sampler/business/sampling/app"

// SamplingService fans a quote request out to every registered sampler.
type SamplingService struct {
	samplers []SourceSampler
	tracer   trace.Tracer
}

// NewSamplingService registers samplers in order. Nil samplers are ignored.
func NewSamplingService(samplers ...SourceSampler) *SamplingService {
	s := &SamplingService{tracer: otel.Tracer(tracerName)}
	for _, sampler := range samplers {
		if sampler != nil {
			s.samplers = append(s.samplers, sampler)
		}
	}
	return s
}

// Samplers returns the registered samplers in registration order.
func (s *SamplingService) Samplers() []SourceSampler {
	out := make([]SourceSampler, len(s.samplers))
	copy(out, s.samplers)
	return out
}

// Sources returns the sources of the registered samplers.
func (s *SamplingService) Sources() []domain.Source {
	out := make([]domain.Source, len(s.samplers))
	for i, sampler := range s.samplers {
		out[i] = sampler.Source()
	}
	return out
}

// GetSellQuotes quotes selling each amount of path[0] on every sampler that
// can convert path. Sources without samples are absent from the result.
func (s *SamplingService) GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) map[domain.Source][][]domain.QuoteSample {
	ctx, span := s.tracer.Start(ctx, "SamplingService.GetSellQuotes")
	defer span.End()

	return s.fanOut(ctx, span, path, func(ctx context.Context, sampler SourceSampler) [][]domain.QuoteSample {
		return sampler.GetSellQuotes(ctx, path, takerAmounts)
	})
}

// GetBuyQuotes quotes buying each amount of the last path token.
func (s *SamplingService) GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) map[domain.Source][][]domain.QuoteSample {
	ctx, span := s.tracer.Start(ctx, "SamplingService.GetBuyQuotes")
	defer span.End()

	return s.fanOut(ctx, span, path, func(ctx context.Context, sampler SourceSampler) [][]domain.QuoteSample {
		return sampler.GetBuyQuotes(ctx, path, makerAmounts)
	})
}

func (s *SamplingService) fanOut(
	ctx context.Context,
	span trace.Span,
	path []common.Address,
	quote func(context.Context, SourceSampler) [][]domain.QuoteSample,
) map[domain.Source][][]domain.QuoteSample {
	results := make([][][]domain.QuoteSample, len(s.samplers))

	g, gctx := errgroup.WithContext(ctx)
	for i, sampler := range s.samplers {
		if !sampler.CanConvertTokens(path) {
			continue
		}
		g.Go(func() error {
			results[i] = quote(gctx, sampler)
			return nil
		})
	}
	_ = g.Wait()

	// Merge in registration order so the result never depends on completion order.
	out := make(map[domain.Source][][]domain.QuoteSample)
	for i, sampler := range s.samplers {
		if len(results[i]) == 0 {
			continue
		}
		src := sampler.Source()
		out[src] = append(out[src], results[i]...)
	}

	span.SetAttributes(
		attribute.Int("samplers", len(s.samplers)),
		attribute.Int("sources_quoted", len(out)),
	)
	return out
}
