package quoteop

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Sampler contract methods.
const (
	MethodSellsFromBalancerV2 = "sampleSellsFromBalancerV2"
	MethodBuysFromBalancerV2  = "sampleBuysFromBalancerV2"
	MethodSellsFromShell      = "sampleSellsFromShell"
	MethodBuysFromShell       = "sampleBuysFromShell"
	MethodSellsFromMStable    = "sampleSellsFromMStable"
	MethodBuysFromMStable     = "sampleBuysFromMStable"
	MethodSellsFromDODO       = "sampleSellsFromDODO"
	MethodBuysFromDODO        = "sampleBuysFromDODO"
	MethodSellsFromDODOV2     = "sampleSellsFromDODOV2"
	MethodBuysFromDODOV2      = "sampleBuysFromDODOV2"
	MethodSellsFromMooniswap  = "sampleSellsFromMooniswap"
	MethodBuysFromMooniswap   = "sampleBuysFromMooniswap"
)

// SamplerABI is the subset of the ERC20BridgeSampler ABI used by the sources.
const SamplerABI = `[
	{
		"name": "sampleSellsFromBalancerV2", "type": "function", "stateMutability": "nonpayable",
		"inputs": [
			{"name": "poolInfo", "type": "tuple", "components": [
				{"name": "poolId", "type": "bytes32"},
				{"name": "vault", "type": "address"}
			]},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [{"name": "makerTokenAmounts", "type": "uint256[]"}]
	},
	{
		"name": "sampleBuysFromBalancerV2", "type": "function", "stateMutability": "nonpayable",
		"inputs": [
			{"name": "poolInfo", "type": "tuple", "components": [
				{"name": "poolId", "type": "bytes32"},
				{"name": "vault", "type": "address"}
			]},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [{"name": "takerTokenAmounts", "type": "uint256[]"}]
	},
	{
		"name": "sampleSellsFromShell", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "pool", "type": "address"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [{"name": "makerTokenAmounts", "type": "uint256[]"}]
	},
	{
		"name": "sampleBuysFromShell", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "pool", "type": "address"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [{"name": "takerTokenAmounts", "type": "uint256[]"}]
	},
	{
		"name": "sampleSellsFromMStable", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "router", "type": "address"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [{"name": "makerTokenAmounts", "type": "uint256[]"}]
	},
	{
		"name": "sampleBuysFromMStable", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "router", "type": "address"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [{"name": "takerTokenAmounts", "type": "uint256[]"}]
	},
	{
		"name": "sampleSellsFromDODO", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "opts", "type": "tuple", "components": [
				{"name": "registry", "type": "address"},
				{"name": "helper", "type": "address"}
			]},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [
			{"name": "sellBase", "type": "bool"},
			{"name": "pool", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		]
	},
	{
		"name": "sampleBuysFromDODO", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "opts", "type": "tuple", "components": [
				{"name": "registry", "type": "address"},
				{"name": "helper", "type": "address"}
			]},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [
			{"name": "sellBase", "type": "bool"},
			{"name": "pool", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		]
	},
	{
		"name": "sampleSellsFromDODOV2", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "registry", "type": "address"},
			{"name": "offset", "type": "uint256"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [
			{"name": "sellBase", "type": "bool"},
			{"name": "pool", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		]
	},
	{
		"name": "sampleBuysFromDODOV2", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "registry", "type": "address"},
			{"name": "offset", "type": "uint256"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [
			{"name": "sellBase", "type": "bool"},
			{"name": "pool", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		]
	},
	{
		"name": "sampleSellsFromMooniswap", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "registry", "type": "address"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [
			{"name": "pool", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		]
	},
	{
		"name": "sampleBuysFromMooniswap", "type": "function", "stateMutability": "view",
		"inputs": [
			{"name": "registry", "type": "address"},
			{"name": "takerToken", "type": "address"},
			{"name": "makerToken", "type": "address"},
			{"name": "makerTokenAmounts", "type": "uint256[]"}
		],
		"outputs": [
			{"name": "pool", "type": "address"},
			{"name": "takerTokenAmounts", "type": "uint256[]"}
		]
	}
]`

// Multicall3ABI only includes aggregate3.
const Multicall3ABI = `[
	{
		"name": "aggregate3", "type": "function", "stateMutability": "payable",
		"inputs": [
			{"name": "calls", "type": "tuple[]", "components": [
				{"name": "target", "type": "address"},
				{"name": "allowFailure", "type": "bool"},
				{"name": "callData", "type": "bytes"}
			]}
		],
		"outputs": [
			{"name": "returnData", "type": "tuple[]", "components": [
				{"name": "success", "type": "bool"},
				{"name": "returnData", "type": "bytes"}
			]}
		]
	}
]`

// BalancerV2PoolInfo is the poolInfo tuple of the Balancer V2 sampler methods.
type BalancerV2PoolInfo struct {
	PoolId [32]byte
	Vault  common.Address
}

// DodoSamplerOpts is the opts tuple of the DODO v1 sampler methods.
type DodoSamplerOpts struct {
	Registry common.Address
	Helper   common.Address
}

// Call3 is one aggregate3 input.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result3 is one aggregate3 output.
type Result3 struct {
	Success    bool
	ReturnData []byte
}

var (
	samplerABI = sync.OnceValue(func() abi.ABI {
		return mustParseABI(SamplerABI)
	})
	multicallABI = sync.OnceValue(func() abi.ABI {
		return mustParseABI(Multicall3ABI)
	})
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("quoteop: invalid ABI: " + err.Error())
	}
	return parsed
}
