package app

import (
	"context"
	"math/big"
)

type blockNumberKey struct{}

// WithBlockNumber pins every quote made with ctx to block n.
func WithBlockNumber(ctx context.Context, n *big.Int) context.Context {
	if n == nil {
		return ctx
	}
	return context.WithValue(ctx, blockNumberKey{}, new(big.Int).Set(n))
}

// BlockNumberFromContext returns the pinned block, nil for latest.
func BlockNumberFromContext(ctx context.Context) *big.Int {
	n, _ := ctx.Value(blockNumberKey{}).(*big.Int)
	return n
}
