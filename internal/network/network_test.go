package network_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/network"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		chainID uint64
		want    string
		wantErr bool
	}{
		{name: "mainnet", chainID: 1, want: "mainnet"},
		{name: "bsc", chainID: 56, want: "bsc"},
		{name: "polygon", chainID: 137, want: "polygon"},
		{name: "goerli", chainID: 5, wantErr: true},
		{name: "zero", chainID: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := network.Lookup(tt.chainID)
			if tt.wantErr {
				if !errors.Is(err, network.ErrUnsupportedNetwork) {
					t.Fatalf("expected ErrUnsupportedNetwork, got %v", err)
				}
				if n.Multicall3 != (common.Address{}) {
					t.Error("unsupported network must not carry addresses")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.Name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, n.Name)
			}
			if n.Multicall3 != network.Multicall3Address {
				t.Errorf("unexpected multicall3 address %s", n.Multicall3.Hex())
			}
		})
	}
}

func TestLookup_WrappedNative(t *testing.T) {
	n := network.MustLookup(network.Mainnet)
	if n.WrappedNative != asset.WETH.Address() {
		t.Errorf("expected WETH, got %s", n.WrappedNative.Hex())
	}
}
