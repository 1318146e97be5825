// Package domain holds the chain-head types every sampling round is pinned to.
package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is the subset of a header a sampling round needs.
type Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time
	BaseFee    *big.Int
}

// BigNumber is the block tag for a pinned eth_call.
func (b *Block) BigNumber() *big.Int {
	return new(big.Int).SetUint64(b.Number)
}

// Age is how long ago the block was sealed. Clock skew never yields a
// negative age.
func (b *Block) Age(now time.Time) time.Duration {
	if d := now.Sub(b.Timestamp); d > 0 {
		return d
	}
	return 0
}

func (b *Block) String() string {
	return fmt.Sprintf("#%d (%s)", b.Number, b.Hash.TerminalString())
}

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus is a point-in-time view of the head feed.
type ConnectionStatus struct {
	State      ConnectionState
	LastBlock  uint64
	Reconnects int
	UsingHTTP  bool
}

func (s ConnectionStatus) Connected() bool { return s.State == StateConnected }

// Transport names how heads currently arrive.
func (s ConnectionStatus) Transport() string {
	if s.UsingHTTP {
		return "http polling"
	}
	return "websocket"
}

func (s ConnectionStatus) String() string {
	if s.State == StateDisconnected {
		return string(s.State)
	}
	return fmt.Sprintf("%s via %s, %d reconnects", s.State, s.Transport(), s.Reconnects)
}
