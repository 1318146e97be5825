// Package subgraph queries The Graph indexes that back pool discovery.
package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/poolcache"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/circuitbreaker"
	"github.com/fd1az/dex-sampler/internal/httpclient"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/ratelimit"
)

// Balancer V2 defaults.
const (
	DefaultBalancerV2URL   = "https://api.thegraph.com/subgraphs/name/balancer-labs/balancer-v2"
	DefaultTopPoolsFetched = 250
	DefaultRequestTimeout  = 30 * time.Second
)

var _ poolcache.Discovery = (*BalancerV2)(nil)

const topPoolsQuery = `query fetchTopPools($first: Int!) {
  pools(first: $first, where: {totalLiquidity_gt: 0}, orderBy: swapsCount, orderDirection: desc) {
    id
    swapFee
    totalWeight
    tokensList
    amp
    totalShares
    tokens {
      id
      address
      balance
      decimals
      symbol
      weight
    }
  }
}`

// pairCandidates is how many pools per kept slot a pair query asks for, so
// the pool cache ranks by pair balance over more than the kept count.
const pairCandidates = 4

const poolsForPairQuery = `query fetchPoolsForPair($first: Int!, $taker: Bytes!, $maker: Bytes!) {
  pools(first: $first, where: {tokensList_contains: [$taker, $maker]}, orderBy: totalLiquidity, orderDirection: desc) {
    id
    swapFee
    tokens {
      address
      balance
      weight
    }
    swaps(orderBy: timestamp, orderDirection: desc, first: 1, where: {tokenIn: $taker, tokenOut: $maker}) {
      tokenAmountIn
      tokenAmountOut
    }
  }
}`

// BalancerV2Config configures the Balancer V2 subgraph client.
type BalancerV2Config struct {
	URL             string
	TopPoolsFetched int
	MaxPoolsFetched int
	RequestTimeout  time.Duration
	RateLimitRPS    float64
}

type poolsData struct {
	Pools []domain.PoolRecord `json:"pools"`
}

// BalancerV2 discovers Balancer V2 pools through its subgraph.
type BalancerV2 struct {
	cfg     BalancerV2Config
	client  httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[json.RawMessage]
	logger  logger.LoggerInterface
}

// NewBalancerV2 creates the client. Extra options are passed to the
// underlying HTTP client.
func NewBalancerV2(cfg BalancerV2Config, log logger.LoggerInterface, opts ...httpclient.ClientOption) (*BalancerV2, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultBalancerV2URL
	}
	if cfg.TopPoolsFetched <= 0 {
		cfg.TopPoolsFetched = DefaultTopPoolsFetched
	}
	if cfg.MaxPoolsFetched <= 0 {
		cfg.MaxPoolsFetched = poolcache.DefaultMaxPoolsFetched
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	opts = append([]httpclient.ClientOption{
		httpclient.WithProviderName("balancer-v2-subgraph"),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
	}, opts...)
	client, err := httpclient.NewInstrumentedClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &BalancerV2{
		cfg:     cfg,
		client:  client,
		limiter: ratelimit.New("balancer-v2-subgraph", cfg.RateLimitRPS, 1),
		cb:      circuitbreaker.New[json.RawMessage](circuitbreaker.DefaultConfig("balancer-v2-subgraph")),
		logger:  log,
	}, nil
}

// FetchTopPools returns the most traded pools with liquidity.
func (b *BalancerV2) FetchTopPools(ctx context.Context) ([]domain.PoolRecord, error) {
	var data poolsData
	if err := b.query(ctx, "fetchTopPools", topPoolsQuery, map[string]any{"first": b.cfg.TopPoolsFetched}, &data); err != nil {
		return nil, err
	}
	return data.Pools, nil
}

// FetchPoolsForPair returns the most liquid pools holding both tokens, up to
// pairCandidates times MaxPoolsFetched. Pools that do not parse for the pair
// are dropped.
func (b *BalancerV2) FetchPoolsForPair(ctx context.Context, taker, maker common.Address) ([]domain.Pool, error) {
	vars := map[string]any{
		"first": b.cfg.MaxPoolsFetched * pairCandidates,
		"taker": strings.ToLower(taker.Hex()),
		"maker": strings.ToLower(maker.Hex()),
	}
	var data poolsData
	if err := b.query(ctx, "fetchPoolsForPair", poolsForPairQuery, vars, &data); err != nil {
		return nil, err
	}

	pools := make([]domain.Pool, 0, len(data.Pools))
	for _, rec := range data.Pools {
		pool, err := b.ParsePool(rec, taker, maker)
		if err != nil {
			b.logger.Warn(ctx, "skipping balancer v2 pool", append([]any{"pool", rec.ID}, apperror.LogArgs(err)...)...)
			continue
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// ParsePool extracts the taker -> maker view of rec. Both tokens must be in
// the pool with non-zero balances. The spot price is derived from the most
// recent taker -> maker swap when the record carries one.
func (b *BalancerV2) ParsePool(rec domain.PoolRecord, taker, maker common.Address) (domain.Pool, error) {
	id, err := domain.ParsePoolKey(rec.ID)
	if err != nil {
		return domain.Pool{}, invalidRecord(rec.ID, err)
	}

	in, ok := findToken(rec.Tokens, taker)
	if !ok {
		return domain.Pool{}, invalidRecord(rec.ID, fmt.Errorf("token %s not in pool", taker.Hex()))
	}
	out, ok := findToken(rec.Tokens, maker)
	if !ok {
		return domain.Pool{}, invalidRecord(rec.ID, fmt.Errorf("token %s not in pool", maker.Hex()))
	}

	balanceIn, err := parseDecimal(in.Balance)
	if err != nil {
		return domain.Pool{}, invalidRecord(rec.ID, err)
	}
	balanceOut, err := parseDecimal(out.Balance)
	if err != nil {
		return domain.Pool{}, invalidRecord(rec.ID, err)
	}
	if !balanceIn.IsPositive() || !balanceOut.IsPositive() {
		return domain.Pool{}, invalidRecord(rec.ID, errors.New("zero balance"))
	}

	weightIn, err := parseDecimal(in.Weight)
	if err != nil {
		return domain.Pool{}, invalidRecord(rec.ID, err)
	}
	weightOut, err := parseDecimal(out.Weight)
	if err != nil {
		return domain.Pool{}, invalidRecord(rec.ID, err)
	}
	swapFee, err := parseDecimal(rec.SwapFee)
	if err != nil {
		return domain.Pool{}, invalidRecord(rec.ID, err)
	}

	pool := domain.Pool{
		ID:         id,
		BalanceIn:  balanceIn,
		BalanceOut: balanceOut,
		WeightIn:   weightIn,
		WeightOut:  weightOut,
		SwapFee:    swapFee,
	}

	if len(rec.Swaps) > 0 {
		amountIn, errIn := parseDecimal(rec.Swaps[0].TokenAmountIn)
		amountOut, errOut := parseDecimal(rec.Swaps[0].TokenAmountOut)
		if errIn == nil && errOut == nil && amountIn.IsPositive() && amountOut.IsPositive() {
			spot := amountOut.Div(amountIn)
			pool.SpotPrice = &spot
		}
	}

	return pool, nil
}

func (b *BalancerV2) query(ctx context.Context, op, query string, vars map[string]any, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	data, err := b.cb.Execute(func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := httpclient.Query(ctx, b.client, b.cfg.URL, httpclient.GraphQLRequest{
			Query:         query,
			Variables:     vars,
			OperationName: op,
		}, &raw)
		return raw, err
	})
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			return err
		}
		code := apperror.CodeDiscoveryFailed
		if errors.Is(err, context.DeadlineExceeded) {
			code = apperror.CodeDiscoveryTimeout
		}
		return apperror.External(code, "balancer v2 subgraph "+op, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperror.New(apperror.CodeDecodeFailed, apperror.WithCause(err), apperror.WithContext("balancer v2 subgraph "+op))
	}
	return nil
}

func findToken(tokens []domain.PoolTokenRecord, addr common.Address) (domain.PoolTokenRecord, bool) {
	for _, t := range tokens {
		if strings.EqualFold(t.Address, addr.Hex()) {
			return t, true
		}
	}
	return domain.PoolTokenRecord{}, false
}

// parseDecimal treats an empty value as zero, as the subgraph reports no
// weight for stable pools.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func invalidRecord(id string, cause error) error {
	return apperror.New(apperror.CodeInvalidPoolRecord,
		apperror.WithCause(cause),
		apperror.WithContext("pool "+id))
}
