package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tracepad/internal/clock"
)

// timerMsg fires a scheduled callback on the Update loop.
type timerMsg struct {
	id uint64
}

// loopScheduler runs clock callbacks as Bubble Tea messages, so every state
// change still happens inside Update.
type loopScheduler struct {
	now     func() time.Time
	nextID  uint64
	pending map[uint64]func()
	cmds    []tea.Cmd
}

func newLoopScheduler(now func() time.Time) *loopScheduler {
	if now == nil {
		now = time.Now
	}
	return &loopScheduler{now: now, pending: map[uint64]func(){}}
}

func (s *loopScheduler) Now() time.Time { return s.now() }

func (s *loopScheduler) AfterFunc(d time.Duration, fn func()) clock.Cancel {
	s.nextID++
	id := s.nextID
	s.pending[id] = fn
	s.cmds = append(s.cmds, tea.Tick(d, func(time.Time) tea.Msg { return timerMsg{id: id} }))
	return func() { delete(s.pending, id) }
}

// fire runs the callback for id unless it was cancelled.
func (s *loopScheduler) fire(id uint64) bool {
	fn, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	fn()
	return true
}

// flush returns the ticks scheduled since the last flush.
func (s *loopScheduler) flush() tea.Cmd {
	if len(s.cmds) == 0 {
		return nil
	}
	cmds := s.cmds
	s.cmds = nil
	return tea.Batch(cmds...)
}
