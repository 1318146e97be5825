// Package quoteoptest provides an in-memory sampler contract behind a
// Multicall3 aggregate3 endpoint.
package quoteoptest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
)

// Handler answers one sampler call. The returned values are packed as the
// method's outputs; a non-nil error makes the call revert with its message.
type Handler func(method string, args []any) ([]any, error)

// Call is one sampler call received by the fake.
type Call struct {
	Method string
	Args   []any
}

// Caller implements app.Caller.
type Caller struct {
	Handler Handler
	// Err, when set, fails the whole aggregate3 call.
	Err error

	mu      sync.Mutex
	batches int
	calls   []Call
	blocks  []*big.Int
}

// New returns a fake dispatching every sampler call to h.
func New(h Handler) *Caller {
	return &Caller{Handler: h}
}

var (
	samplerABI   = mustParse(quoteop.SamplerABI)
	multicallABI = mustParse(quoteop.Multicall3ABI)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// CallContract decodes an aggregate3 call and answers each inner call.
func (c *Caller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.batches++
	c.blocks = append(c.blocks, blockNumber)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}

	aggregate := multicallABI.Methods["aggregate3"]
	if len(msg.Data) < 4 {
		return nil, errors.New("quoteoptest: short calldata")
	}
	values, err := aggregate.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	calls := *abi.ConvertType(values[0], new([]quoteop.Call3)).(*[]quoteop.Call3)

	results := make([]quoteop.Result3, len(calls))
	for i, call := range calls {
		results[i] = c.dispatch(call.CallData)
	}

	return aggregate.Outputs.Pack(results)
}

func (c *Caller) dispatch(data []byte) quoteop.Result3 {
	if len(data) < 4 {
		return quoteop.Result3{ReturnData: RevertData("short calldata")}
	}
	method, err := samplerABI.MethodById(data[:4])
	if err != nil {
		return quoteop.Result3{ReturnData: RevertData(err.Error())}
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return quoteop.Result3{ReturnData: RevertData(err.Error())}
	}

	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method.Name, Args: args})
	c.mu.Unlock()

	if c.Handler == nil {
		return quoteop.Result3{ReturnData: RevertData("no handler")}
	}
	outs, err := c.Handler(method.Name, args)
	if err != nil {
		return quoteop.Result3{ReturnData: RevertData(err.Error())}
	}
	packed, err := method.Outputs.Pack(outs...)
	if err != nil {
		panic(fmt.Sprintf("quoteoptest: packing %s outputs: %v", method.Name, err))
	}
	return quoteop.Result3{Success: true, ReturnData: packed}
}

// Batches returns the number of aggregate3 calls received.
func (c *Caller) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

// Calls returns every sampler call received, in order.
func (c *Caller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Blocks returns the block number of every aggregate3 call.
func (c *Caller) Blocks() []*big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*big.Int(nil), c.blocks...)
}

// RevertData encodes msg as an Error(string) revert payload.
func RevertData(msg string) []byte {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(msg)
	return append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
}

// Scale returns amounts each multiplied by num/den, the usual fake price curve.
func Scale(amounts []*big.Int, num, den int64) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		v := new(big.Int).Mul(a, big.NewInt(num))
		out[i] = v.Quo(v, big.NewInt(den))
	}
	return out
}
