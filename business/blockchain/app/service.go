package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fd1az/dex-sampler/business/blockchain/domain"
)

// DefaultStaleAfter is about ten mainnet slots.
const DefaultStaleAfter = 2 * time.Minute

// BlockchainService relays the head feed to other modules and remembers
// the last head it delivered.
type BlockchainService struct {
	feed       HeadFeed
	staleAfter time.Duration
	head       atomic.Pointer[domain.Block]
	delivered  atomic.Uint64
	now        func() time.Time
}

func NewBlockchainService(feed HeadFeed, staleAfter time.Duration) *BlockchainService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &BlockchainService{feed: feed, staleAfter: staleAfter, now: time.Now}
}

// SubscribeBlocks starts the feed. The returned channel closes when the
// feed closes or ctx ends.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	src, err := s.feed.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan *domain.Block)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-src:
				if !ok {
					return
				}
				s.head.Store(b)
				s.delivered.Add(1)
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.feed.LatestBlock(ctx)
}

func (s *BlockchainService) ConnectionStatus() domain.ConnectionStatus {
	return s.feed.Status()
}

// Head is the last block delivered to subscribers, nil before the first.
func (s *BlockchainService) Head() *domain.Block {
	return s.head.Load()
}

// Check reports feed health: connected (or polling) and a head younger
// than the stale threshold.
func (s *BlockchainService) Check(context.Context) (bool, string) {
	st := s.feed.Status()
	if st.State == domain.StateDisconnected {
		return false, st.String()
	}
	head := s.head.Load()
	if head == nil {
		return true, st.String() + ", no head yet"
	}
	age := head.Age(s.now())
	msg := fmt.Sprintf("%s, head %d is %s old, %d delivered", st, head.Number, age.Round(time.Second), s.delivered.Load())
	return age <= s.staleAfter, msg
}

func (s *BlockchainService) Close() error {
	return s.feed.Close()
}
