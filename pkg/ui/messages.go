package ui

import (
	"time"

	"github.com/fd1az/dex-sampler/business/monitor/domain"
)

// SnapshotMsg carries one pair sampled at one block.
type SnapshotMsg struct {
	Snapshot *domain.Snapshot
}

type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg announces the head a round is about to sample.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

type ErrorMsg struct {
	Error error
}

// TickMsg drives animations and the welcome-screen timeout.
type TickMsg struct{}

// StartupMsg advances one step of the startup screen. Step is one of
// config, ethereum, samplers or monitor; Status is connecting, connected,
// done or failed.
type StartupMsg struct {
	Step    string
	Status  string
	Message string
}
