package quoteop_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/app"
	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop/quoteoptest"
	"github.com/fd1az/dex-sampler/internal/logger"
)

var (
	samplerAddr = common.HexToAddress("0x00000000000000000000000000000000000005a5")
	takerToken  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	makerToken  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	revertPool  = common.HexToAddress("0x0000000000000000000000000000000000000bad")
)

func amounts(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

// shellHandler quotes pool p at a price of p's last byte, and reverts for revertPool.
func shellHandler(method string, args []any) ([]any, error) {
	pool := args[0].(common.Address)
	if pool == revertPool {
		return nil, errors.New("pool paused")
	}
	return []any{quoteoptest.Scale(args[3].([]*big.Int), int64(pool[19]), 1)}, nil
}

func shellOp(t *testing.T, pool common.Address, in []*big.Int) *quoteop.Operation {
	t.Helper()
	op, err := quoteop.New(quoteop.Params{
		Source:   domain.SourceShell,
		Method:   quoteop.MethodSellsFromShell,
		Args:     []any{pool, takerToken, makerToken, in},
		Shape:    quoteop.ShapeAmounts,
		FillData: domain.PoolFillData{Pool: pool},
	})
	if err != nil {
		t.Fatalf("quoteop.New: %v", err)
	}
	return op
}

func newExecutor(t *testing.T, caller *quoteoptest.Caller, batchSize int) *quoteop.Executor {
	t.Helper()
	exec, err := quoteop.NewExecutor(caller, quoteop.ExecutorConfig{
		Sampler:     samplerAddr,
		BatchSize:   batchSize,
		CallTimeout: time.Second,
	}, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec
}

func TestNewExecutor_RequiresSampler(t *testing.T) {
	_, err := quoteop.NewExecutor(quoteoptest.New(nil), quoteop.ExecutorConfig{}, nil, logger.NewNop())
	if err == nil {
		t.Fatal("expected error for missing sampler address")
	}
}

func TestExecutor_RevertIsolation(t *testing.T) {
	caller := quoteoptest.New(shellHandler)
	exec := newExecutor(t, caller, 64)

	in := amounts(100, 200)
	ops := []*quoteop.Operation{
		shellOp(t, common.HexToAddress("0x02"), in),
		shellOp(t, revertPool, in),
		shellOp(t, common.HexToAddress("0x03"), in),
	}

	results := exec.Execute(context.Background(), ops)

	if len(results) != len(ops) {
		t.Fatalf("got %d results, want %d", len(results), len(ops))
	}
	if caller.Batches() != 1 {
		t.Errorf("batches = %d, want 1", caller.Batches())
	}

	want := [][]int64{{200, 400}, nil, {300, 600}}
	for i, w := range want {
		if len(results[i]) != len(w) {
			t.Fatalf("results[%d] has %d entries, want %d", i, len(results[i]), len(w))
		}
		for j, v := range w {
			if results[i][j].Output.Int64() != v {
				t.Errorf("results[%d][%d] = %s, want %d", i, j, results[i][j].Output, v)
			}
		}
	}
	if results[1] == nil {
		t.Error("reverted operation should yield an empty, non-nil slice")
	}
}

func TestExecutor_Chunking(t *testing.T) {
	caller := quoteoptest.New(shellHandler)
	exec := newExecutor(t, caller, 2)

	ops := make([]*quoteop.Operation, 5)
	for i := range ops {
		ops[i] = shellOp(t, common.BigToAddress(big.NewInt(int64(i+1))), amounts(10))
	}

	results := exec.Execute(context.Background(), ops)

	if caller.Batches() != 3 {
		t.Errorf("batches = %d, want 3", caller.Batches())
	}
	for i, r := range results {
		want := int64(10 * (i + 1))
		if len(r) != 1 || r[0].Output.Int64() != want {
			t.Errorf("results[%d] = %v, want [%d]", i, r, want)
		}
		if fd, ok := r[0].FillData.(domain.PoolFillData); !ok || fd.Pool != common.BigToAddress(big.NewInt(int64(i+1))) {
			t.Errorf("results[%d] fill data = %+v", i, r[0].FillData)
		}
	}
}

// flakyCaller fails its first aggregate3 call.
type flakyCaller struct {
	*quoteoptest.Caller
	calls int
}

func (f *flakyCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("connection reset")
	}
	return f.Caller.CallContract(ctx, msg, block)
}

func TestExecutor_ChunkFailureIsIsolated(t *testing.T) {
	caller := &flakyCaller{Caller: quoteoptest.New(shellHandler)}
	exec, err := quoteop.NewExecutor(caller, quoteop.ExecutorConfig{
		Sampler:   samplerAddr,
		BatchSize: 2,
	}, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	ops := make([]*quoteop.Operation, 4)
	for i := range ops {
		ops[i] = shellOp(t, common.BigToAddress(big.NewInt(int64(i+1))), amounts(1))
	}

	results := exec.Execute(context.Background(), ops)

	for i := 0; i < 2; i++ {
		if len(results[i]) != 0 {
			t.Errorf("results[%d] = %v, want empty after failed batch", i, results[i])
		}
	}
	for i := 2; i < 4; i++ {
		if len(results[i]) != 1 || results[i][0].Output.Int64() != int64(i+1) {
			t.Errorf("results[%d] = %v, want [%d]", i, results[i], i+1)
		}
	}
}

func TestExecutor_TransportFailure(t *testing.T) {
	caller := quoteoptest.New(shellHandler)
	caller.Err = errors.New("node unavailable")
	exec := newExecutor(t, caller, 64)

	results := exec.Execute(context.Background(), []*quoteop.Operation{
		shellOp(t, common.HexToAddress("0x02"), amounts(1)),
	})

	if len(results) != 1 || len(results[0]) != 0 {
		t.Errorf("results = %v, want one empty slice", results)
	}
}

func TestExecutor_EncodeFailureSkipsOnlyThatOp(t *testing.T) {
	caller := quoteoptest.New(shellHandler)
	exec := newExecutor(t, caller, 64)

	bad, err := quoteop.New(quoteop.Params{
		Source:   domain.SourceShell,
		Method:   quoteop.MethodSellsFromShell,
		Args:     []any{"not an address"},
		Shape:    quoteop.ShapeAmounts,
		FillData: domain.PoolFillData{},
	})
	if err != nil {
		t.Fatalf("quoteop.New: %v", err)
	}

	results := exec.Execute(context.Background(), []*quoteop.Operation{
		bad,
		shellOp(t, common.HexToAddress("0x04"), amounts(5)),
	})

	if len(results[0]) != 0 {
		t.Errorf("results[0] = %v, want empty", results[0])
	}
	if len(results[1]) != 1 || results[1][0].Output.Int64() != 20 {
		t.Errorf("results[1] = %v, want [20]", results[1])
	}
	if len(caller.Calls()) != 1 {
		t.Errorf("sampler calls = %d, want 1", len(caller.Calls()))
	}
}

func TestExecutor_PinsBlockNumber(t *testing.T) {
	caller := quoteoptest.New(shellHandler)
	exec := newExecutor(t, caller, 64)

	ctx := app.WithBlockNumber(context.Background(), big.NewInt(19_000_000))
	exec.Execute(ctx, []*quoteop.Operation{shellOp(t, common.HexToAddress("0x02"), amounts(1))})
	exec.Execute(context.Background(), []*quoteop.Operation{shellOp(t, common.HexToAddress("0x02"), amounts(1))})

	blocks := caller.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("got %d batches, want 2", len(blocks))
	}
	if blocks[0] == nil || blocks[0].Int64() != 19_000_000 {
		t.Errorf("first batch block = %v, want 19000000", blocks[0])
	}
	if blocks[1] != nil {
		t.Errorf("second batch block = %v, want latest (nil)", blocks[1])
	}
}

func TestExecutor_NoOps(t *testing.T) {
	caller := quoteoptest.New(shellHandler)
	exec := newExecutor(t, caller, 64)

	if got := exec.Execute(context.Background(), nil); len(got) != 0 {
		t.Errorf("Execute(nil) = %v, want empty", got)
	}
	if caller.Batches() != 0 {
		t.Errorf("batches = %d, want 0", caller.Batches())
	}
}
