// Package app exposes the chain head to the rest of the sampler.
package app

import (
	"context"

	"github.com/fd1az/dex-sampler/business/blockchain/domain"
)

// HeadFeed delivers new chain heads. Numbers on the channel strictly
// increase; when the consumer falls behind, older heads are dropped in
// favour of the newest.
type HeadFeed interface {
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)
	LatestBlock(ctx context.Context) (*domain.Block, error)
	Status() domain.ConnectionStatus
	// Close ends the feed and closes the channel returned by Subscribe.
	Close() error
}
