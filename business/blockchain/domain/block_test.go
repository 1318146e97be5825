package domain

import (
	"testing"
	"time"
)

func TestBlock_Age(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := &Block{Number: 19_000_000, Timestamp: now.Add(-24 * time.Second)}

	if got := b.Age(now); got != 24*time.Second {
		t.Errorf("age = %s, want 24s", got)
	}
	if got := b.Age(now.Add(-time.Minute)); got != 0 {
		t.Errorf("future block age = %s, want 0", got)
	}
	if b.BigNumber().Uint64() != 19_000_000 {
		t.Errorf("big number = %s", b.BigNumber())
	}
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		name string
		st   ConnectionStatus
		want string
	}{
		{name: "down", st: ConnectionStatus{State: StateDisconnected, Reconnects: 3}, want: "disconnected"},
		{name: "ws", st: ConnectionStatus{State: StateConnected}, want: "connected via websocket, 0 reconnects"},
		{name: "polling", st: ConnectionStatus{State: StateReconnecting, UsingHTTP: true, Reconnects: 2}, want: "reconnecting via http polling, 2 reconnects"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
