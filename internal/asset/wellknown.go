package asset

import "github.com/ethereum/go-ethereum/common"

const (
	ChainIDEthereum = 1
	ChainIDBSC      = 56
	ChainIDPolygon  = 137
)

// Ethereum mainnet tokens.
var (
	WETH   = MustNewToken(ChainIDEthereum, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", "Wrapped Ether", 18)
	USDC   = MustNewToken(ChainIDEthereum, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", "USD Coin", 6)
	USDT   = MustNewToken(ChainIDEthereum, common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), "USDT", "Tether USD", 6)
	DAI    = MustNewToken(ChainIDEthereum, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "DAI", "Dai Stablecoin", 18)
	SUSD   = MustNewToken(ChainIDEthereum, common.HexToAddress("0x57Ab1ec28D129707052df4dF418D58a2D46d5f51"), "sUSD", "Synth sUSD", 18)
	USDP   = MustNewToken(ChainIDEthereum, common.HexToAddress("0x1456688345527bE1f37E9e627DA0837D6f08C925"), "USDP", "USDP Stablecoin", 18)
	WBTC   = MustNewToken(ChainIDEthereum, common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), "WBTC", "Wrapped BTC", 8)
	RenBTC = MustNewToken(ChainIDEthereum, common.HexToAddress("0xEB4C2781e4ebA804CE9a9803C67d0893436bB27D"), "renBTC", "renBTC", 8)
	SBTC   = MustNewToken(ChainIDEthereum, common.HexToAddress("0xfE18be6b3Bd88A2D2A7f928d00292E7a9963CfC6"), "sBTC", "Synth sBTC", 18)
)

// Polygon tokens.
var (
	PolygonWMATIC = MustNewToken(ChainIDPolygon, common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), "WMATIC", "Wrapped Matic", 18)
	PolygonWETH   = MustNewToken(ChainIDPolygon, common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), "WETH", "Wrapped Ether", 18)
	PolygonUSDC   = MustNewToken(ChainIDPolygon, common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), "USDC", "USD Coin (PoS)", 6)
	PolygonUSDT   = MustNewToken(ChainIDPolygon, common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"), "USDT", "Tether USD (PoS)", 6)
	PolygonDAI    = MustNewToken(ChainIDPolygon, common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"), "DAI", "Dai Stablecoin (PoS)", 18)
	PolygonWBTC   = MustNewToken(ChainIDPolygon, common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"), "WBTC", "Wrapped BTC (PoS)", 8)
)

// BNB Smart Chain tokens.
var (
	BSCWBNB = MustNewToken(ChainIDBSC, common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"), "WBNB", "Wrapped BNB", 18)
	BSCETH  = MustNewToken(ChainIDBSC, common.HexToAddress("0x2170Ed0880ac9A755fd29B2688956BD959F933F8"), "ETH", "Binance-Peg Ethereum", 18)
	BSCBUSD = MustNewToken(ChainIDBSC, common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"), "BUSD", "Binance-Peg BUSD", 18)
	BSCUSDT = MustNewToken(ChainIDBSC, common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"), "USDT", "Binance-Peg USDT", 18)
	BSCUSDC = MustNewToken(ChainIDBSC, common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"), "USDC", "Binance-Peg USD Coin", 18)
	BSCDAI  = MustNewToken(ChainIDBSC, common.HexToAddress("0x1AF3F329e8BE154074D8769D1FFa4eE058B1DBc3"), "DAI", "Binance-Peg Dai", 18)
)

// DefaultRegistry returns a registry pre-populated with the well-known tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{
		WETH, USDC, USDT, DAI, SUSD, USDP, WBTC, RenBTC, SBTC,
		PolygonWMATIC, PolygonWETH, PolygonUSDC, PolygonUSDT, PolygonDAI, PolygonWBTC,
		BSCWBNB, BSCETH, BSCBUSD, BSCUSDT, BSCUSDC, BSCDAI,
	} {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}
