package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolKey is a 32-byte pool identifier. Balancer V2 pool ids use all 32
// bytes; address-identified pools are right-aligned with zero padding.
type PoolKey [32]byte

// PoolKeyFromAddress right-aligns addr into a PoolKey.
func PoolKeyFromAddress(addr common.Address) PoolKey {
	var k PoolKey
	copy(k[12:], addr.Bytes())
	return k
}

// ParsePoolKey parses a hex id of up to 32 bytes. Shorter ids, such as
// 20-byte addresses, are right-aligned like PoolKeyFromAddress.
func ParsePoolKey(s string) (PoolKey, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) == 0 || len(raw) > 64 || len(raw)%2 != 0 {
		return PoolKey{}, fmt.Errorf("invalid pool id %q", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return PoolKey{}, fmt.Errorf("invalid pool id %q: %w", s, err)
	}
	var k PoolKey
	copy(k[32-len(b):], b)
	return k, nil
}

// ToAddress interprets the key as a right-aligned address. Keys whose first
// 12 bytes are not zero (bytes32 pool ids) are rejected.
func (k PoolKey) ToAddress() (common.Address, error) {
	for _, b := range k[:12] {
		if b != 0 {
			return common.Address{}, fmt.Errorf("pool key %s is not an address", k.Hex())
		}
	}
	return common.BytesToAddress(k[12:]), nil
}

// Bytes32 returns the key as an ABI bytes32 value.
func (k PoolKey) Bytes32() [32]byte {
	return k
}

func (k PoolKey) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (k PoolKey) String() string {
	return k.Hex()
}

// MarshalText encodes the key as hex, so PoolKey works as a JSON value.
func (k PoolKey) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

func (k *PoolKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePoolKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Pool is one pool's pricing state for an ordered (taker, maker) pair.
// Balances are in whole token units as reported by discovery.
type Pool struct {
	ID         PoolKey          `json:"id"`
	BalanceIn  decimal.Decimal  `json:"balanceIn"`
	BalanceOut decimal.Decimal  `json:"balanceOut"`
	WeightIn   decimal.Decimal  `json:"weightIn"`
	WeightOut  decimal.Decimal  `json:"weightOut"`
	SwapFee    decimal.Decimal  `json:"swapFee"`
	SpotPrice  *decimal.Decimal `json:"spotPrice,omitempty"`
}

// PairKey is an ordered, case-insensitive (taker, maker) pair. (A, B) and
// (B, A) are different keys.
type PairKey struct {
	Taker common.Address
	Maker common.Address
}

// NewPairKey builds the key for taker -> maker.
func NewPairKey(taker, maker common.Address) PairKey {
	return PairKey{Taker: taker, Maker: maker}
}

// ParsePairKey builds a key from hex addresses in any letter case.
func ParsePairKey(taker, maker string) (PairKey, error) {
	if !common.IsHexAddress(taker) || !common.IsHexAddress(maker) {
		return PairKey{}, fmt.Errorf("invalid pair %s/%s", taker, maker)
	}
	return NewPairKey(common.HexToAddress(taker), common.HexToAddress(maker)), nil
}

func (p PairKey) String() string {
	return strings.ToLower(p.Taker.Hex()) + "-" + strings.ToLower(p.Maker.Hex())
}

// Reverse returns the maker -> taker key.
func (p PairKey) Reverse() PairKey {
	return PairKey{Taker: p.Maker, Maker: p.Taker}
}

// PoolRecord is a raw pool as returned by a discovery service.
type PoolRecord struct {
	ID          string            `json:"id"`
	SwapFee     string            `json:"swapFee"`
	TotalWeight string            `json:"totalWeight"`
	TokensList  []string          `json:"tokensList"`
	Tokens      []PoolTokenRecord `json:"tokens"`
	Swaps       []SwapRecord      `json:"swaps,omitempty"`
}

// PoolTokenRecord is one token's state inside a PoolRecord.
type PoolTokenRecord struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
	Weight   string `json:"weight"`
}

// SwapRecord is the most recent observed swap for a pair.
type SwapRecord struct {
	TokenAmountIn  string `json:"tokenAmountIn"`
	TokenAmountOut string `json:"tokenAmountOut"`
}
