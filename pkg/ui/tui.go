// Package ui provides the Bubble Tea quote board.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dex-sampler/pkg/ui/theme"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-sampler/business/monitor/domain"
	"github.com/fd1az/dex-sampler/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "ethereum", "samplers", "monitor"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	quotes  *components.QuotesComponent
	history *components.HistoryComponent
	status  *components.StatusComponent
	stats   *components.StatsComponent
	keys    KeyMap
	help    help.Model

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	quitting     bool
	paused       bool
	width        int
	height       int
	currentBlock uint64
	blockTime    time.Time
	lastUpdate   time.Time
	lastSample   time.Time
	errors       []ErrorEntry // last 3
	logs         []string     // last 5

	// Quote boards keyed by pair, in first-seen order
	boards    map[string]*components.QuoteBoard
	pairOrder []string
	selected  int
	lastRates map[string]decimal.Decimal

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		quotes:       components.NewQuotesComponent(),
		history:      components.NewHistoryComponent(50, 10),
		status:       components.NewStatusComponent(),
		stats:        components.NewStatsComponent(),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		errors:       make([]ErrorEntry, 0, 3),
		logs:         make([]string, 0, 5),
		boards:       make(map[string]*components.QuoteBoard),
		lastRates:    make(map[string]decimal.Decimal),
		startupSteps: map[string]*StartupStep{
			"config":   {Name: "Loading configuration", Status: "pending"},
			"ethereum": {Name: "Connecting to Ethereum", Status: "pending"},
			"samplers": {Name: "Initializing samplers", Status: "pending"},
			"monitor":  {Name: "Starting quote monitor", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Update must not call Send, so the callback runs directly.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Clear):
			m.history.Clear()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.NextPair):
			m.selectPair(1)
		case key.Matches(msg, m.keys.PrevPair):
			m.selectPair(-1)
		case key.Matches(msg, m.keys.Up):
			m.history.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.history.ScrollDown()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		if m.phase == PhaseStartup && (m.currentBlock > 0 || m.startupComplete()) {
			m.phase = PhaseDashboard
		}
		return m, tickCmd()

	case SnapshotMsg:
		if msg.Snapshot != nil && !m.paused {
			m.applySnapshot(msg.Snapshot)
		}

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:      msg.Name,
			Connected: msg.Connected,
			Latency:   msg.Latency,
		})
		m.lastUpdate = time.Now()

		if step, ok := m.startupSteps[strings.ToLower(msg.Name)]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else {
				step.Status = "connecting"
			}
		}

	case BlockMsg:
		m.currentBlock = msg.Number
		m.blockTime = msg.Timestamp
		m.stats.RecordBlock()
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
		m.stats.RecordError()

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Message != "" {
			m.logs = addLog(m.logs, "info", msg.Message)
		}
	}

	return m, nil
}

func (m *Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

func (m *Model) selectPair(delta int) {
	if len(m.pairOrder) == 0 {
		return
	}
	n := len(m.pairOrder)
	m.selected = ((m.selected+delta)%n + n) % n
	m.refreshQuotes()
}

func (m *Model) refreshQuotes() {
	if len(m.pairOrder) == 0 {
		return
	}
	m.quotes.Update(m.boards[m.pairOrder[m.selected]], m.selected, len(m.pairOrder))
}

// applySnapshot converts a snapshot into display rows. The UI only formats;
// bests and rates come from the snapshot.
func (m *Model) applySnapshot(snap *domain.Snapshot) {
	pair := snap.Pair.String()
	board := &components.QuoteBoard{
		Pair:        pair,
		MakerSymbol: snap.Pair.Maker.Symbol(),
		BlockNumber: snap.BlockNumber,
		Inputs:      make([]string, len(snap.Inputs)),
		Rows:        make([]components.QuoteRow, 0, len(snap.Sources)),
		Best:        make([]components.BestCell, len(snap.Best)),
		DurationMs:  snap.Duration.Milliseconds(),
	}
	for i, in := range snap.Inputs {
		board.Inputs[i] = in.StringFixed(0)
	}
	for _, q := range snap.Sources {
		row := components.QuoteRow{
			Source:    string(q.Source),
			Sequences: q.Sequences,
			Outputs:   make([]decimal.Decimal, len(q.Outputs)),
		}
		for i, out := range q.Outputs {
			row.Outputs[i] = out.ToDecimal()
		}
		board.Rows = append(board.Rows, row)
	}
	for i, best := range snap.Best {
		board.Best[i] = components.BestCell{Source: string(best.Source), Rate: best.Rate}
	}

	if _, seen := m.boards[pair]; !seen {
		m.pairOrder = append(m.pairOrder, pair)
	}
	m.boards[pair] = board
	m.refreshQuotes()

	if n := len(snap.Best); n > 0 && snap.Best[n-1].Source != "" {
		best := snap.Best[n-1]
		change := decimal.Zero
		if prev, ok := m.lastRates[pair]; ok && !prev.IsZero() {
			change = best.Rate.Sub(prev).Div(prev).Mul(decimal.NewFromInt(10000))
		}
		m.lastRates[pair] = best.Rate
		m.history.Add(components.HistoryRow{
			BlockNumber: snap.BlockNumber,
			Pair:        pair,
			Input:       best.Input.StringFixed(0),
			Source:      string(best.Source),
			Rate:        best.Rate,
			ChangeBps:   change,
		})
	}

	m.stats.RecordSnapshot(snap.SampleCount(), snap.Duration)

	m.lastSample = time.Now()
	m.lastUpdate = time.Now()
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(theme.Banner.Render(" DEX Quote Sampler "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.quotes.View() + "\n\n" + m.stats.View()
	rightCol := m.history.View()

	if m.width > 120 {
		left := theme.Box.Width(m.width/2 - 2).Render(leftCol)
		right := theme.Box.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(theme.Box.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(theme.Box.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(theme.Alert.Render("ERRORS"))
		b.WriteString(theme.Muted.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(theme.Fall.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(theme.Muted.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(theme.Caution.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ██████╗ ███████╗██╗  ██╗
   ██╔══██╗██╔════╝╚██╗██╔╝
   ██║  ██║█████╗   ╚███╔╝
   ██║  ██║██╔══╝   ██╔██╗
   ██████╔╝███████╗██╔╝ ██╗
   ╚═════╝ ╚══════╝╚═╝  ╚═╝
`
	sb.WriteString(theme.Heading.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render("     Q U O T E   S A M P L E R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(theme.Rise.Render(fmt.Sprintf("         Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(theme.Muted.Render("   Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(theme.Heading.Render("  DEX Quote Sampler"))
	sb.WriteString("\n\n")
	sb.WriteString(theme.Value.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, stepKey := range startupOrder {
		step, ok := m.startupSteps[stepKey]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", theme.Rise
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			icon = spinners[int(time.Since(m.startupTime).Milliseconds()/200)%len(spinners)]
			statusText, style = "Connecting...", theme.Pending
		case "failed":
			icon, statusText, style = "✗", "Failed", theme.Fall
		default:
			icon, statusText, style = "○", "Pending", theme.Muted
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			theme.Muted.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n\n")
	for _, line := range m.logs {
		sb.WriteString(theme.Muted.Render("  " + line))
		sb.WriteString("\n")
	}
	sb.WriteString(theme.Muted.Render("  Waiting for first Ethereum block..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastSample) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		parts = append(parts, theme.Best.Render(spinners[idx]+" Sampling"))
	}

	head := fmt.Sprintf("Block: #%d", m.currentBlock)
	if !m.blockTime.IsZero() {
		head += theme.Muted.Render(fmt.Sprintf(" (%s old)", time.Since(m.blockTime).Round(time.Second)))
	}
	parts = append(parts, head)
	parts = append(parts, m.status.View())

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, theme.Muted.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. Set by main.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
