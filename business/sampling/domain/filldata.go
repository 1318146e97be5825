package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FillData is the venue-specific data needed to later execute a fill
// against the sampled pool. The set of implementations is closed.
type FillData interface {
	isFillData()
}

// BalancerV2FillData identifies a Balancer V2 pool inside its vault.
type BalancerV2FillData struct {
	PoolID PoolKey
	Vault  common.Address
}

// PoolFillData identifies a pool by contract address. Shared by the
// Shell forks and Mooniswap.
type PoolFillData struct {
	Pool common.Address
}

// DodoFillData identifies a DODO v1 pool, its trade direction and the
// helper contract used for buys.
type DodoFillData struct {
	Pool       common.Address
	IsSellBase bool
	Helper     common.Address
}

// DodoV2FillData identifies a DODO v2 pool and its trade direction.
type DodoV2FillData struct {
	Pool       common.Address
	IsSellBase bool
}

func (BalancerV2FillData) isFillData() {}
func (PoolFillData) isFillData() {}
func (DodoFillData) isFillData() {}
func (DodoV2FillData) isFillData() {}

// QuoteResult is one decoded output of a quote operation.
type QuoteResult struct {
	Output   *big.Int
	FillData FillData
}

// QuoteSample is the output quoted for one input amount.
// For sells Input is a taker amount and Output a maker amount; buys are the reverse.
type QuoteSample struct {
	Source   Source
	FillData FillData
	Input    *big.Int
	Output   *big.Int
}
