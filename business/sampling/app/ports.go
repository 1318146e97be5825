// Package app contains the sampling service and the port definitions
// implemented by the venue adapters.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
)

// SourceSampler quotes swaps against one venue family.
//
// Implementations never return errors: infeasible paths yield an empty
// result and failed operations are logged and omitted.
type SourceSampler interface {
	// Source identifies the venue.
	Source() domain.Source

	// CanConvertTokens reports whether the sampler can quote path. It must not
	// perform I/O.
	CanConvertTokens(path []common.Address) bool

	// GetSellQuotes quotes selling each of takerAmounts of path[0] for
	// path[len(path)-1]. Every inner slice holds one sample per amount, in order.
	GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) [][]domain.QuoteSample

	// GetBuyQuotes quotes buying each of makerAmounts of path[len(path)-1].
	GetBuyQuotes(ctx context.Context, path []common.Address, makerAmounts []*big.Int) [][]domain.QuoteSample
}

// Caller executes read-only contract calls. Satisfied by *ethclient.Client.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
