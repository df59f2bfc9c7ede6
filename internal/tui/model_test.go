package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

type fakeSubmitter struct {
	batches []model.Batch
	res     model.SubmitResult
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, batch model.Batch) (model.SubmitResult, error) {
	f.batches = append(f.batches, batch)
	return f.res, f.err
}

type memoryHistory struct {
	outcomes []model.SessionOutcome
}

func (h *memoryHistory) InsertOutcome(_ context.Context, out model.SessionOutcome) (int64, error) {
	h.outcomes = append(h.outcomes, out)
	return int64(len(h.outcomes)), nil
}

func (h *memoryHistory) ListOutcomes(context.Context, model.HistoryFilter) ([]model.SessionOutcome, error) {
	return h.outcomes, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestModel(t *testing.T, mode model.Mode, sub *fakeSubmitter) *Model {
	t.Helper()
	m, _ := newTestModelWithClock(t, mode, sub)
	return m
}

func newTestModelWithClock(t *testing.T, mode model.Mode, sub *fakeSubmitter) (*Model, *testClock) {
	t.Helper()
	clk := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	capCfg := model.DefaultCaptureConfig()
	capCfg.MaxBatchSize = 3
	opts := Options{
		Capture:      capCfg,
		Pattern:      model.DefaultPatternConfig(),
		Mode:         mode,
		Picker:       trajectory.NewSeededPicker(7),
		History:      &memoryHistory{},
		NewSessionID: func() string { return "session-1" },
		Now:          clk.Now,
	}
	if sub != nil {
		opts.Submitter = sub
	}
	m, err := NewModel(opts)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return m, clk
}

func mouse(action tea.MouseAction, button tea.MouseButton, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: button}
}

func TestLayoutMapsCellsToSurface(t *testing.T) {
	m := newTestModel(t, model.ModeDrawing, nil)
	if size := m.pipe.Task().Size(); size != 400 {
		t.Fatalf("expected bounded surface 400, got %v", size)
	}
	p := m.toSurface(m.boardLeft, m.boardTop)
	if p.X != 5 || p.Y != 10 {
		t.Fatalf("unexpected top-left mapping %+v", p)
	}
	if !strings.Contains(m.View(), "tracepad") {
		t.Fatalf("expected title in view")
	}
}

func TestMouseDragSubmitsFullBatch(t *testing.T) {
	sub := &fakeSubmitter{res: model.SubmitResult{Metric: 42, HasMetric: true}}
	m, clk := newTestModelWithClock(t, model.ModeDrawing, sub)
	row := m.boardTop + 5

	clk.now = clk.now.Add(10 * time.Millisecond)
	m.handleMouse(mouse(tea.MouseActionPress, tea.MouseButtonLeft, m.boardLeft+1, row))
	for i := 2; i <= 6; i++ {
		clk.now = clk.now.Add(20 * time.Millisecond)
		m.handleMouse(mouse(tea.MouseActionMotion, tea.MouseButtonLeft, m.boardLeft+i, row))
	}
	clk.now = clk.now.Add(20 * time.Millisecond)
	cmd := m.handleMouse(mouse(tea.MouseActionRelease, tea.MouseButtonLeft, m.boardLeft+6, row))
	if cmd == nil || !m.inflight {
		t.Fatalf("expected submission to start")
	}
	if got := m.pipe.Snapshot().State; got != model.StateSending {
		t.Fatalf("expected sending, got %v", got)
	}

	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) == 0 {
		t.Fatalf("expected batched commands")
	}
	msg, ok := batch[0]().(submitMsg)
	if !ok {
		t.Fatalf("expected submit message first")
	}
	if len(msg.batch.Samples) != 3 || msg.batch.Mode != model.ModeDrawing {
		t.Fatalf("unexpected batch %+v", msg.batch)
	}

	m.Update(msg)
	if m.inflight {
		t.Fatalf("expected submission finished")
	}
	hist := m.history.(*memoryHistory)
	if len(hist.outcomes) != 1 || hist.outcomes[0].Metric == nil || *hist.outcomes[0].Metric != 42 {
		t.Fatalf("unexpected stored outcomes %+v", hist.outcomes)
	}
	snap := m.pipe.Snapshot()
	if snap.Counters.Submitted != 1 || !snap.HasMetric {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !strings.Contains(m.renderMetric(snap), "42.00%") {
		t.Fatalf("expected metric line, got %s", m.renderMetric(snap))
	}
}

func TestModeSwitchBlockedWhileSending(t *testing.T) {
	sub := &fakeSubmitter{}
	m, clk := newTestModelWithClock(t, model.ModeDrawing, sub)
	row := m.boardTop + 2
	m.handleMouse(mouse(tea.MouseActionPress, tea.MouseButtonLeft, m.boardLeft, row))
	for i := 1; i <= 5; i++ {
		clk.now = clk.now.Add(20 * time.Millisecond)
		m.handleMouse(mouse(tea.MouseActionMotion, tea.MouseButtonLeft, m.boardLeft+i, row))
	}
	if cmd := m.handleMouse(mouse(tea.MouseActionRelease, tea.MouseButtonLeft, m.boardLeft+5, row)); cmd == nil {
		t.Fatalf("expected submission")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if m.pipe.Mode() != model.ModeDrawing {
		t.Fatalf("mode switched while sending")
	}
	if m.notice == "" {
		t.Fatalf("expected busy notice")
	}
}

func TestRightClickTogglesCapture(t *testing.T) {
	m := newTestModel(t, model.ModePattern, nil)
	m.handleMouse(mouse(tea.MouseActionPress, tea.MouseButtonRight, m.boardLeft, m.boardTop))
	if m.pipe.Snapshot().State != model.StateCapturing {
		t.Fatalf("expected capture to start")
	}
	m.handleMouse(mouse(tea.MouseActionRelease, tea.MouseButtonRight, m.boardLeft, m.boardTop))
	if m.pipe.Snapshot().State != model.StateCapturing {
		t.Fatalf("right release must not end capture")
	}
	m.handleMouse(mouse(tea.MouseActionPress, tea.MouseButtonRight, m.boardLeft, m.boardTop))
	if m.pipe.Snapshot().State != model.StateIdle {
		t.Fatalf("expected toggle to stop capture")
	}
}

func TestKeysSwitchModeAndQuit(t *testing.T) {
	m := newTestModel(t, model.ModePattern, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	if m.pipe.Mode() != model.ModeDrawing {
		t.Fatalf("expected drawing mode, got %s", m.pipe.Mode())
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}
