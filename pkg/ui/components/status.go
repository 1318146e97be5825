package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/dex-sampler/pkg/ui/theme"
)

// ConnectionStatus is one upstream as last reported. Latency is the age of
// the newest head seen over it.
type ConnectionStatus struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// StatusComponent is the connection line of the status bar. Entries keep
// the order in which they were first reported.
type StatusComponent struct {
	conns []ConnectionStatus
}

func NewStatusComponent() *StatusComponent {
	return &StatusComponent{}
}

func (s *StatusComponent) Update(status ConnectionStatus) {
	if i := s.index(status.Name); i >= 0 {
		s.conns[i] = status
		return
	}
	s.conns = append(s.conns, status)
}

// Connected is false for names never reported.
func (s *StatusComponent) Connected(name string) bool {
	i := s.index(name)
	return i >= 0 && s.conns[i].Connected
}

func (s *StatusComponent) index(name string) int {
	for i, c := range s.conns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *StatusComponent) View() string {
	if len(s.conns) == 0 {
		return theme.Muted.Render("No connections")
	}
	parts := make([]string, 0, len(s.conns))
	for _, c := range s.conns {
		if !c.Connected {
			parts = append(parts, theme.Alert.Render("○ "+c.Name+" (disconnected)"))
			continue
		}
		part := theme.Best.Render("● " + c.Name)
		if c.Latency > 0 {
			part += fmt.Sprintf(" (%dms)", c.Latency.Milliseconds())
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "  │  ")
}
