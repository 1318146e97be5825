package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	blockchainDomain "github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/pkg/ui"
)

func TestTUIReporter_Messages(t *testing.T) {
	var sent []any
	r := &TUIReporter{send: func(msg any) { sent = append(sent, msg) }}

	snap := testSnapshot()
	_ = r.Start(context.Background())
	r.UpdateBlock(&blockchainDomain.Block{Number: 5, Timestamp: time.Now()})
	r.Report(snap)
	r.UpdateConnectionStatus("Ethereum", true, time.Second)
	r.ReportError(errors.New("boom"))

	if len(sent) != 5 {
		t.Fatalf("sent %d messages, want 5", len(sent))
	}
	if msg, ok := sent[0].(ui.StartupMsg); !ok || msg.Step != "monitor" {
		t.Errorf("sent[0] = %#v", sent[0])
	}
	if msg, ok := sent[1].(ui.BlockMsg); !ok || msg.Number != 5 {
		t.Errorf("sent[1] = %#v", sent[1])
	}
	if msg, ok := sent[2].(ui.SnapshotMsg); !ok || msg.Snapshot != snap {
		t.Errorf("sent[2] = %#v", sent[2])
	}
	if msg, ok := sent[3].(ui.ConnectionStatusMsg); !ok || !msg.Connected {
		t.Errorf("sent[3] = %#v", sent[3])
	}
	if _, ok := sent[4].(ui.ErrorMsg); !ok {
		t.Errorf("sent[4] = %#v", sent[4])
	}
}
