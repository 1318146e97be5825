package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type symbolKey struct {
	chainID uint64
	symbol  string
}

// Registry indexes known tokens by Key and by per-chain symbol.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byKey    map[Key]*Asset
	bySymbol map[symbolKey]*Asset
}

func NewRegistry() *Registry {
	return &Registry{
		byKey:    make(map[Key]*Asset),
		bySymbol: make(map[symbolKey]*Asset),
	}
}

// Register adds a token. A second token with the same key or the same
// symbol on one chain is rejected.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: register nil token")
	}
	sk := symbolKey{chainID: a.ChainID(), symbol: strings.ToUpper(a.Symbol())}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byKey[a.Key()]; dup {
		return fmt.Errorf("asset: %s already registered", a.Key())
	}
	if _, dup := r.bySymbol[sk]; dup {
		return fmt.Errorf("asset: symbol %s already registered on chain %d", a.Symbol(), a.ChainID())
	}
	r.byKey[a.Key()] = a
	r.bySymbol[sk] = a
	return nil
}

func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byKey[Key{ChainID: chainID, Address: address}]
	return a, ok
}

// GetBySymbol is case-insensitive.
func (r *Registry) GetBySymbol(chainID uint64, symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[symbolKey{chainID: chainID, symbol: strings.ToUpper(symbol)}]
	return a, ok
}

// Lookup resolves ref as a hex contract address when it looks like one,
// otherwise as a symbol.
func (r *Registry) Lookup(chainID uint64, ref string) (*Asset, error) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		if a, ok := r.GetToken(chainID, common.HexToAddress(ref)); ok {
			return a, nil
		}
		return nil, fmt.Errorf("asset: no token at %s on chain %d", ref, chainID)
	}
	if a, ok := r.GetBySymbol(chainID, ref); ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset: unknown token %s on chain %d", ref, chainID)
}

// Pair resolves a taker and a maker reference in one call.
func (r *Registry) Pair(chainID uint64, taker, maker string) (*Asset, *Asset, error) {
	t, err := r.Lookup(chainID, taker)
	if err != nil {
		return nil, nil, err
	}
	m, err := r.Lookup(chainID, maker)
	if err != nil {
		return nil, nil, err
	}
	if t.Equals(m) {
		return nil, nil, fmt.Errorf("asset: pair %s/%s trades a token for itself", taker, maker)
	}
	return t, m, nil
}
