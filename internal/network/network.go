// Package network is the closed set of chains the sampler can run against.
package network

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/internal/asset"
)

// ChainID is an EVM chain identifier.
type ChainID uint64

const (
	Mainnet ChainID = asset.ChainIDEthereum
	BSC     ChainID = asset.ChainIDBSC
	Polygon ChainID = asset.ChainIDPolygon
)

// ErrUnsupportedNetwork is returned by Lookup for chains outside the table.
var ErrUnsupportedNetwork = errors.New("network: unsupported chain id")

// Multicall3Address is the canonical Multicall3 deployment, identical on every chain.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Network is the static configuration of one supported chain.
type Network struct {
	ChainID       ChainID
	Name          string
	WrappedNative common.Address
	Multicall3    common.Address
}

func (n Network) String() string {
	return fmt.Sprintf("%s(%d)", n.Name, uint64(n.ChainID))
}

var networks = map[ChainID]Network{
	Mainnet: {
		ChainID:       Mainnet,
		Name:          "mainnet",
		WrappedNative: asset.WETH.Address(),
		Multicall3:    Multicall3Address,
	},
	BSC: {
		ChainID:       BSC,
		Name:          "bsc",
		WrappedNative: asset.BSCWBNB.Address(),
		Multicall3:    Multicall3Address,
	},
	Polygon: {
		ChainID:       Polygon,
		Name:          "polygon",
		WrappedNative: asset.PolygonWMATIC.Address(),
		Multicall3:    Multicall3Address,
	},
}

// Lookup returns the network for chainID or ErrUnsupportedNetwork.
func Lookup(chainID uint64) (Network, error) {
	n, ok := networks[ChainID(chainID)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %d", ErrUnsupportedNetwork, chainID)
	}
	return n, nil
}

// MustLookup is Lookup for package-level tables and tests.
func MustLookup(chainID ChainID) Network {
	n, err := Lookup(uint64(chainID))
	if err != nil {
		panic(err)
	}
	return n
}
