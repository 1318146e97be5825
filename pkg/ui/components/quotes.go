// Package components holds the panels of the quote board.
package components

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-sampler/pkg/ui/theme"
)

// QuoteRow is one source's outputs, one per sampled input.
type QuoteRow struct {
	Source    string
	Sequences int
	Outputs   []decimal.Decimal // zero when the source did not quote
}

// BestCell is the winning source for one input.
type BestCell struct {
	Source string
	Rate   decimal.Decimal
}

// QuoteBoard is the data for one pair at one block.
type QuoteBoard struct {
	Pair        string
	MakerSymbol string
	BlockNumber uint64
	Inputs      []string
	Rows        []QuoteRow
	Best        []BestCell
	DurationMs  int64
}

// QuotesComponent renders the per-source quote table for the selected pair.
type QuotesComponent struct {
	board    *QuoteBoard
	position int
	total    int
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{}
}

// Update replaces the displayed board. position and total describe where
// the pair sits among all monitored pairs.
func (q *QuotesComponent) Update(board *QuoteBoard, position, total int) {
	q.board = board
	q.position = position
	q.total = total
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	if q.board == nil {
		return "Waiting for quotes..."
	}
	b := q.board


	var sb strings.Builder
	sb.WriteString(theme.Heading.Render(fmt.Sprintf("QUOTES %s", b.Pair)))
	if q.total > 1 {
		sb.WriteString(theme.Muted.Render(fmt.Sprintf("  (%d/%d, tab: next)", q.position+1, q.total)))
	}
	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("  block #%d  %dms  output in %s", b.BlockNumber, b.DurationMs, b.MakerSymbol)))
	sb.WriteString("\n\n")

	width := 12 + 16*len(b.Inputs)
	sb.WriteString(fmt.Sprintf("  %-12s", "Source"))
	for _, in := range b.Inputs {
		sb.WriteString(fmt.Sprintf("%16s", in))
	}
	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render("  " + strings.Repeat("─", width)))
	sb.WriteString("\n")

	if len(b.Rows) == 0 {
		sb.WriteString(theme.Muted.Render("  No source quoted this pair"))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, row := range b.Rows {
		sb.WriteString(fmt.Sprintf("  %-12s", row.Source))
		for i, out := range row.Outputs {
			cell := fmt.Sprintf("%16s", "-")
			if !out.IsZero() {
				cell = fmt.Sprintf("%16s", out.StringFixed(4))
			}
			if i < len(b.Best) && b.Best[i].Source == row.Source {
				cell = theme.Best.Render(cell)
			}
			sb.WriteString(cell)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(theme.Muted.Render("  " + strings.Repeat("─", width)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %-12s", "Rate"))
	for _, best := range b.Best {
		cell := "-"
		if best.Source != "" {
			cell = best.Rate.StringFixed(6)
		}
		sb.WriteString(theme.Best.Render(fmt.Sprintf("%16s", cell)))
	}
	sb.WriteString("\n")

	return sb.String()
}
