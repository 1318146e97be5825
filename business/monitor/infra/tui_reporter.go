package infra

import (
	"context"
	"time"

	blockchainDomain "github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/business/monitor/domain"
	"github.com/fd1az/dex-sampler/pkg/ui"
)

// TUIReporter implements Reporter by forwarding to the Bubble Tea program.
type TUIReporter struct {
	send func(msg any)
}

// NewTUIReporter creates a TUIReporter sending to the running ui program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: func(msg any) { ui.Send(msg) }}
}

// Start marks the monitor step of the startup screen.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: "monitor", Status: "done"})
	return nil
}

// Report sends a snapshot to the quote board.
func (r *TUIReporter) Report(snap *domain.Snapshot) {
	r.send(ui.SnapshotMsg{Snapshot: snap})
}

// UpdateBlock sends the new block number.
func (r *TUIReporter) UpdateBlock(block *blockchainDomain.Block) {
	r.send(ui.BlockMsg{Number: block.Number, Timestamp: block.Timestamp})
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// ReportError sends an error to the error panel.
func (r *TUIReporter) ReportError(err error) {
	r.send(ui.ErrorMsg{Error: err})
}

// Stop is a no-op; the program is owned by main.
func (r *TUIReporter) Stop() error {
	return nil
}
