package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the dashboard's bindings; it also feeds the help bar.
type KeyMap struct {
	Quit, Pause, Help  key.Binding
	Clear, ClearErrors key.Binding
	NextPair, PrevPair key.Binding
	Up, Down           key.Binding
}

func bind(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:        bind("q", "quit", "q", "ctrl+c"),
		Pause:       bind("p", "freeze board", "p"),
		Help:        bind("?", "help", "?"),
		Clear:       bind("c", "clear history", "c"),
		ClearErrors: bind("e", "clear errors", "e"),
		NextPair:    bind("tab/→", "next pair", "tab", "right", "l"),
		PrevPair:    bind("shift+tab/←", "prev pair", "shift+tab", "left", "h"),
		Up:          bind("↑/k", "scroll history", "up", "k"),
		Down:        bind("↓/j", "scroll history", "down", "j"),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPair, k.Pause, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPair, k.PrevPair, k.Up, k.Down},
		{k.Pause, k.Clear, k.ClearErrors},
		{k.Help, k.Quit},
	}
}
