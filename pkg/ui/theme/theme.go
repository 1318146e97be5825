// Package theme is the quote board palette, shared by the ui package and
// its components.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	Accent = lipgloss.Color("#7C3AED")
	Up     = lipgloss.Color("#10B981")
	Down   = lipgloss.Color("#EF4444")
	Warn   = lipgloss.Color("#F59E0B")
	Dim    = lipgloss.Color("#6B7280")
	Border = lipgloss.Color("#374151")
	Bright = lipgloss.Color("#FFFFFF")
)

var (
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Bright).
		Background(Accent).
		Padding(0, 2)

	// Heading titles a panel.
	Heading = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	Muted   = lipgloss.NewStyle().Foreground(Dim)
	Value   = lipgloss.NewStyle().Bold(true).Foreground(Bright)

	// Best marks the winning source for an amount.
	Best    = lipgloss.NewStyle().Bold(true).Foreground(Up)
	Rise    = lipgloss.NewStyle().Foreground(Up)
	Fall    = lipgloss.NewStyle().Foreground(Down)
	Alert   = lipgloss.NewStyle().Bold(true).Foreground(Down)
	Caution = lipgloss.NewStyle().Bold(true).Foreground(Warn)
	Pending = lipgloss.NewStyle().Foreground(Warn)
)
