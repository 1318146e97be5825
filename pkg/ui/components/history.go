package components

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-sampler/pkg/ui/theme"
)

// HistoryRow is the best quote for a pair's largest sampled amount at one block.
type HistoryRow struct {
	BlockNumber uint64
	Pair        string
	Input       string
	Source      string
	Rate        decimal.Decimal
	ChangeBps   decimal.Decimal // versus the pair's previous row
}

// HistoryComponent renders a scrollable list of best quotes, newest first.
type HistoryComponent struct {
	rows    []HistoryRow
	maxRows int
	visible int
	offset  int
}

// NewHistoryComponent creates a new history component.
func NewHistoryComponent(maxRows, visible int) *HistoryComponent {
	return &HistoryComponent{
		rows:    make([]HistoryRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add prepends a row.
func (h *HistoryComponent) Add(row HistoryRow) {
	h.rows = append([]HistoryRow{row}, h.rows...)
	if len(h.rows) > h.maxRows {
		h.rows = h.rows[:h.maxRows]
	}
	if h.offset > 0 {
		h.offset = min(h.offset+1, h.maxOffset())
	}
}

// Clear clears the history.
func (h *HistoryComponent) Clear() {
	h.rows = make([]HistoryRow, 0)
	h.offset = 0
}

// Len returns the number of stored rows.
func (h *HistoryComponent) Len() int {
	return len(h.rows)
}

func (h *HistoryComponent) ScrollUp() {
	if h.offset > 0 {
		h.offset--
	}
}

func (h *HistoryComponent) ScrollDown() {
	if h.offset < h.maxOffset() {
		h.offset++
	}
}

func (h *HistoryComponent) maxOffset() int {
	return max(len(h.rows)-h.visible, 0)
}

// View renders the history component.
func (h *HistoryComponent) View() string {
	result := theme.Heading.Render(fmt.Sprintf("BEST QUOTES (last %d)", h.maxRows)) + "\n"
	if len(h.rows) == 0 {
		return result + theme.Muted.Render("No quotes yet...")
	}

	result += "┌──────────┬────────────┬────────────────┬────────────┬────────────┬──────────┐\n"
	result += "│  Block   │    Pair    │     Amount     │   Source   │    Rate    │  Change  │\n"
	result += "├──────────┼────────────┼────────────────┼────────────┼────────────┼──────────┤\n"

	end := min(h.offset+h.visible, len(h.rows))
	for _, row := range h.rows[h.offset:end] {
		change := fmt.Sprintf("%+.1fbp", row.ChangeBps.InexactFloat64())
		style := theme.Muted
		switch row.ChangeBps.Sign() {
		case 1:
			style = theme.Rise
		case -1:
			style = theme.Fall
		}

		result += fmt.Sprintf("│%9d │%11s │%15s │%11s │%11s │ %s│\n",
			row.BlockNumber,
			row.Pair,
			row.Input,
			row.Source,
			row.Rate.StringFixed(6),
			style.Render(fmt.Sprintf("%-9s", change)),
		)
	}

	result += "└──────────┴────────────┴────────────────┴────────────┴────────────┴──────────┘"
	if len(h.rows) > h.visible {
		result += "\n" + theme.Muted.Render(fmt.Sprintf("rows %d-%d of %d", h.offset+1, end, len(h.rows)))
	}

	return result
}
