package shell

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/network"
)

// Pool is a statically known pool and the tokens it trades.
type Pool struct {
	Name    string
	Address common.Address
	Tokens  []common.Address
}

func addrs(assets ...*asset.Asset) []common.Address {
	out := make([]common.Address, len(assets))
	for i, a := range assets {
		out[i] = a.Address()
	}
	return out
}

var poolsByFork = map[Fork]map[network.ChainID][]Pool{
	ForkShell: {
		network.Mainnet: {
			{
				Name:    "StableCoins",
				Address: common.HexToAddress("0x8f26d7bab7a73309141a291525c965ecdea7bf42"),
				Tokens:  addrs(asset.USDC, asset.USDT, asset.SUSD, asset.DAI),
			},
			{
				Name:    "Bitcoin",
				Address: common.HexToAddress("0xc2d019b901f8d4fdb2b9a65b5d226ad88c66ee8d"),
				Tokens:  addrs(asset.RenBTC, asset.WBTC, asset.SBTC),
			},
		},
	},
	ForkComponent: {
		network.Mainnet: {
			{
				Name:    "USDP_USDC_USDT",
				Address: common.HexToAddress("0x49519631b404e06ca79c9c7b0dc91648d86f08db"),
				Tokens:  addrs(asset.USDP, asset.USDC, asset.USDT),
			},
			{
				Name:    "USDP_DAI_SUSD",
				Address: common.HexToAddress("0x6477960dd932d29518d7e8087d5ea3d11e606068"),
				Tokens:  addrs(asset.USDP, asset.DAI, asset.SUSD),
			},
		},
	},
	ForkMStable: {
		network.Mainnet: {
			{
				Name:    "mUSD",
				Address: common.HexToAddress("0xe2f2a5c287993345a840db3b0845fbc70f5935a5"),
				Tokens:  addrs(asset.DAI, asset.USDC, asset.USDT),
			},
			{
				Name:    "mBTC",
				Address: common.HexToAddress("0x945facb997494cc2570096c74b5f66a3507330a1"),
				Tokens:  addrs(asset.WBTC, asset.RenBTC, asset.SBTC),
			},
		},
		network.Polygon: {
			{
				Name:    "mUSD",
				Address: common.HexToAddress("0xe840b73e5287865eec17d250bfb1536704b43b21"),
				Tokens:  addrs(asset.PolygonDAI, asset.PolygonUSDC, asset.PolygonUSDT),
			},
		},
	},
}

// Pools returns the pools of fork deployed on chain.
func Pools(fork Fork, chain network.ChainID) ([]Pool, bool) {
	byChain, ok := poolsByFork[fork]
	if !ok {
		return nil, false
	}
	pools, ok := byChain[chain]
	return pools, ok && len(pools) > 0
}
