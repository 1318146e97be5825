// Package app contains the block-driven quote monitor and its ports.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/business/monitor/domain"
	sampling "github.com/fd1az/dex-sampler/business/sampling/domain"
)

// BlockSource delivers new blocks. Satisfied by *blockchain/app.BlockchainService.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error)
	ConnectionStatus() blockchainDomain.ConnectionStatus
}

// QuoteSampler quotes a path on every source. Satisfied by
// *sampling/app.SamplingService.
type QuoteSampler interface {
	GetSellQuotes(ctx context.Context, path []common.Address, takerAmounts []*big.Int) map[sampling.Source][][]sampling.QuoteSample
}

// Reporter defines the interface for presenting snapshots.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report presents one pair's snapshot.
	Report(snap *domain.Snapshot)

	// UpdateBlock signals a new block before its pairs are sampled.
	UpdateBlock(block *blockchainDomain.Block)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// ReportError presents a non-fatal error.
	ReportError(err error)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
