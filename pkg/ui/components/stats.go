package components

import (
	"fmt"
	"time"

	"github.com/fd1az/dex-sampler/pkg/ui/theme"
)

// Stats is a snapshot of the session counters.
type Stats struct {
	BlocksSampled int64
	Snapshots     int64
	Sequences     int64
	AvgRoundMs    float64
	Errors        int64
}

// StatsComponent accumulates session counters and renders them.
type StatsComponent struct {
	stats   Stats
	roundMs int64
}

func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

func (s *StatsComponent) RecordBlock() { s.stats.BlocksSampled++ }

func (s *StatsComponent) RecordError() { s.stats.Errors++ }

// RecordSnapshot counts one sampled pair and folds its duration into the
// running average.
func (s *StatsComponent) RecordSnapshot(sequences int, took time.Duration) {
	s.stats.Snapshots++
	s.stats.Sequences += int64(sequences)
	s.roundMs += took.Milliseconds()
	s.stats.AvgRoundMs = float64(s.roundMs) / float64(s.stats.Snapshots)
}

func (s *StatsComponent) Stats() Stats {
	return s.stats
}

func (s *StatsComponent) View() string {
	count := func(n int64) string { return theme.Value.Render(fmt.Sprint(n)) }

	errs := count(s.stats.Errors)
	if s.stats.Errors > 0 {
		errs = theme.Alert.Render(fmt.Sprint(s.stats.Errors))
	}

	return theme.Muted.Render("STATS") + "\n" +
		fmt.Sprintf("Blocks: %s  │  Snapshots: %s  │  Sequences: %s\n",
			count(s.stats.BlocksSampled), count(s.stats.Snapshots), count(s.stats.Sequences)) +
		fmt.Sprintf("Avg sample: %s  │  Errors: %s",
			theme.Value.Render(fmt.Sprintf("%.0fms", s.stats.AvgRoundMs)), errs)
}
