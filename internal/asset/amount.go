package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrTooManyDecimals = errors.New("asset: more fractional digits than the token supports")
)

// Amount is an immutable token quantity in base units (wei for an
// 18-decimal token). The zero value renders as "0 ???".
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw. A nil raw is zero; nil assets and negative values
// are programming errors and panic.
func NewAmount(asset *Asset, raw *big.Int) Amount {
	if asset == nil {
		panic(ErrNilAsset)
	}
	v := new(big.Int)
	if raw != nil {
		if raw.Sign() < 0 {
			panic(ErrNegativeAmount)
		}
		v.Set(raw)
	}
	return Amount{raw: v, asset: asset}
}

func Zero(asset *Asset) Amount {
	return NewAmount(asset, nil)
}

// ParseDecimal converts whole units (1.5 WETH) to base units. Inputs finer
// than the token's precision are rejected rather than rounded.
func ParseDecimal(asset *Asset, d decimal.Decimal) (Amount, error) {
	if asset == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	base := d.Shift(int32(asset.Decimals()))
	if !base.Equal(base.Truncate(0)) {
		return Amount{}, fmt.Errorf("%w: %s %s", ErrTooManyDecimals, d, asset.Symbol())
	}
	return NewAmount(asset, base.BigInt()), nil
}

// ParseString is ParseDecimal for a decimal literal such as "99.5".
func ParseString(asset *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: parse %q: %w", s, err)
	}
	return ParseDecimal(asset, d)
}

// Raw returns a copy; callers may mutate it.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset { return a.asset }

func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

// ToDecimal returns whole units. Display only, never feed it back into
// sampling math.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// Rate is out per unit of in, e.g. DAI received per USDC sold. A zero
// input yields zero.
func Rate(in, out Amount) decimal.Decimal {
	d := in.ToDecimal()
	if d.IsZero() {
		return decimal.Zero
	}
	return out.ToDecimal().Div(d)
}

func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().String() + " " + a.asset.Symbol()
}

// StringFixed renders with exactly places fractional digits.
func (a Amount) StringFixed(places int32) string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().StringFixed(places) + " " + a.asset.Symbol()
}
