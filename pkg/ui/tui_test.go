package ui

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/monitor/domain"
	sampling "github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/asset"
)

var (
	usdc = asset.MustNewToken(1, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", "USD Coin", 6)
	dai  = asset.MustNewToken(1, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "DAI", "Dai", 18)
	weth = asset.MustNewToken(1, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", "Wrapped Ether", 18)
)

func snapshot(block uint64, taker, maker *asset.Asset, out int64) *domain.Snapshot {
	in := asset.NewAmount(taker, big.NewInt(100_000_000))
	raw := new(big.Int).Mul(big.NewInt(out), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(maker.Decimals())), nil))
	quotes := map[sampling.Source][][]sampling.QuoteSample{
		sampling.SourceMooniswap: {{{Source: sampling.SourceMooniswap, Input: in.Raw(), Output: raw}}},
	}
	return domain.NewSnapshot(block, domain.Pair{Taker: taker, Maker: maker}, []asset.Amount{in}, quotes)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_SnapshotUpdatesBoard(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard

	m = update(t, m, BlockMsg{Number: 10})
	m = update(t, m, SnapshotMsg{Snapshot: snapshot(10, usdc, dai, 99)})
	m = update(t, m, SnapshotMsg{Snapshot: snapshot(11, usdc, dai, 100)})

	if m.history.Len() != 2 {
		t.Errorf("history rows = %d, want 2", m.history.Len())
	}
	s := m.stats.Stats()
	if s.BlocksSampled != 1 || s.Snapshots != 2 || s.Sequences != 2 {
		t.Errorf("stats = %+v", s)
	}

	view := m.View()
	for _, want := range []string{"USDC/DAI", "Mooniswap", "block #11"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_PairNavigation(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard

	m = update(t, m, SnapshotMsg{Snapshot: snapshot(1, usdc, dai, 99)})
	m = update(t, m, SnapshotMsg{Snapshot: snapshot(1, usdc, weth, 1)})

	tests := []struct {
		name string
		key  tea.KeyMsg
		want int
	}{
		{name: "next", key: tea.KeyMsg{Type: tea.KeyTab}, want: 1},
		{name: "wraps_forward", key: tea.KeyMsg{Type: tea.KeyTab}, want: 0},
		{name: "wraps_backward", key: tea.KeyMsg{Type: tea.KeyShiftTab}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m = update(t, m, tt.key)
			if m.selected != tt.want {
				t.Errorf("selected = %d, want %d", m.selected, tt.want)
			}
		})
	}
}

func TestModel_PauseFreezesBoard(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.paused {
		t.Fatal("expected paused")
	}
	m = update(t, m, SnapshotMsg{Snapshot: snapshot(1, usdc, dai, 99)})
	if m.stats.Stats().Snapshots != 0 {
		t.Error("snapshot applied while paused")
	}
}

func TestModel_ErrorsKeepLastThree(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m = update(t, m, ErrorMsg{Error: errors.New("boom")})
	}
	if len(m.errors) != 3 {
		t.Errorf("errors = %d, want 3", len(m.errors))
	}
	if m.stats.Stats().Errors != 5 {
		t.Errorf("error count = %d, want 5", m.stats.Stats().Errors)
	}
}

func TestModel_StartupCompletes(t *testing.T) {
	m := New()
	m.phase = PhaseStartup
	for _, step := range startupOrder {
		m = update(t, m, StartupMsg{Step: step, Status: "done"})
	}
	m = update(t, m, TickMsg{})
	if m.phase != PhaseDashboard {
		t.Errorf("phase = %s, want dashboard", m.phase)
	}
}
