// Package asset models ERC-20 tokens and exact token amounts.
// Amounts are big.Int in the token's smallest unit; decimal.Decimal is only
// used when parsing configuration and rendering output.
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// maxDecimals bounds token precision. No ERC-20 in the wild exceeds 18, the
// headroom covers synthetic test tokens.
const maxDecimals = 30

var (
	ErrZeroAddress  = errors.New("asset: zero token address")
	ErrEmptySymbol  = errors.New("asset: empty symbol")
	ErrBadPrecision = errors.New("asset: decimals out of range")
)

// Key identifies a token: a contract address is only unique per chain.
type Key struct {
	ChainID uint64
	Address common.Address
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%s", k.ChainID, strings.ToLower(k.Address.Hex()))
}

// Asset is an ERC-20 token. Identity is the Key; symbol and name are
// display metadata.
type Asset struct {
	key      Key
	symbol   string
	name     string
	decimals uint8
}

// NewToken validates and builds a token. Native coins are not assets here:
// samplers always quote the wrapped ERC-20.
func NewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) (*Asset, error) {
	switch {
	case address == (common.Address{}):
		return nil, ErrZeroAddress
	case strings.TrimSpace(symbol) == "":
		return nil, ErrEmptySymbol
	case decimals > maxDecimals:
		return nil, fmt.Errorf("%w: %d", ErrBadPrecision, decimals)
	}
	return &Asset{
		key:      Key{ChainID: chainID, Address: address},
		symbol:   symbol,
		name:     name,
		decimals: decimals,
	}, nil
}

// MustNewToken is NewToken for package-level token tables.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	a, err := NewToken(chainID, address, symbol, name, decimals)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", symbol, err))
	}
	return a
}

func (a *Asset) Key() Key                { return a.key }
func (a *Asset) ChainID() uint64         { return a.key.ChainID }
func (a *Asset) Address() common.Address { return a.key.Address }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) String() string          { return a.symbol }

// Name falls back to the symbol for tokens registered without one.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals reports whether both are the same token on the same chain.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.key == other.key
}
