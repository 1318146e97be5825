// Package infra contains infrastructure adapters for the monitor context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	blockchainDomain "github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/business/monitor/domain"
)

const rule = "--------------------------------------------------------------------------------"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "DEX Sampler Started")
	fmt.Fprintln(r.out, "===================")
	return nil
}

// Report prints one pair's quote table.
func (r *ConsoleReporter) Report(snap *domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintf(r.out, "%s  block #%d  %d sequences in %s\n",
		snap.Pair.String(), snap.BlockNumber, snap.SampleCount(), snap.Duration.Round(time.Millisecond))
	fmt.Fprintln(r.out, rule)

	fmt.Fprintf(r.out, "%-12s", "SOURCE")
	for _, in := range snap.Inputs {
		fmt.Fprintf(r.out, "%18s", in.StringFixed(2))
	}
	fmt.Fprintln(r.out, "")

	if len(snap.Sources) == 0 {
		fmt.Fprintln(r.out, "  no liquidity")
		return
	}
	for _, q := range snap.Sources {
		fmt.Fprintf(r.out, "%-12s", string(q.Source))
		for _, out := range q.Outputs {
			cell := "-"
			if !out.IsZero() {
				cell = out.ToDecimal().StringFixed(4)
			}
			fmt.Fprintf(r.out, "%18s", cell)
		}
		fmt.Fprintln(r.out, "")
	}

	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "%-12s", "BEST")
	for _, b := range snap.Best {
		cell := "-"
		if b.Source != "" {
			cell = string(b.Source) + " @ " + b.Rate.StringFixed(4)
		}
		fmt.Fprintf(r.out, "%18s", cell)
	}
	fmt.Fprintln(r.out, "")
}

// UpdateBlock prints a block header line.
func (r *ConsoleReporter) UpdateBlock(block *blockchainDomain.Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\n[%s] block #%d %s\n", time.Now().Format("15:04:05"), block.Number, short(block.Hash.Hex()))
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency.Round(time.Millisecond))
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// ReportError prints a non-fatal error.
func (r *ConsoleReporter) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "DEX Sampler Stopped")
	return nil
}

func short(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "..." + hash[len(hash)-4:]
}
