// Package tui provides the Bubble Tea capture interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tracepad/internal/capture"
	"github.com/verte-zerg/tracepad/internal/gateway"
	"github.com/verte-zerg/tracepad/internal/input"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/pipeline"
	"github.com/verte-zerg/tracepad/internal/stats"
	"github.com/verte-zerg/tracepad/internal/task"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// Lines around the board: title and status above, border, metric, footer and help below.
const (
	headerLines = 2
	chromeLines = headerLines + 2 + 3
)

// History persists and lists session outcomes.
type History interface {
	InsertOutcome(ctx context.Context, out model.SessionOutcome) (int64, error)
	ListOutcomes(ctx context.Context, filter model.HistoryFilter) ([]model.SessionOutcome, error)
}

// Options configure the capture UI.
type Options struct {
	Context      context.Context
	Capture      model.CaptureConfig
	Pattern      model.PatternConfig
	Mode         model.Mode
	Picker       *trajectory.Picker
	Submitter    gateway.Submitter
	History      History
	Recorder     *input.Writer
	Logger       *slog.Logger
	NewSessionID func() string
	// Now overrides the wall clock.
	Now func() time.Time
}

type submitMsg struct {
	batch model.Batch
	res   model.SubmitResult
	err   error
}

// Model implements the Bubble Tea capture UI.
type Model struct {
	ctx       context.Context
	logger    *slog.Logger
	sched     *loopScheduler
	pipe      *pipeline.Pipeline
	submitter gateway.Submitter
	history   History
	capture   model.CaptureConfig

	keys     keyMap
	help     help.Model
	fill     progress.Model
	countBar progress.Model
	spin     spinner.Model

	width  int
	height int
	// Terminal cell of the board's top-left inner corner.
	boardLeft int
	boardTop  int

	inflight bool
	notice   string
	last     *model.SessionOutcome
	all      stats.Summary
}

var (
	brightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	footerStyle  = mutedStyle
	titleStyle   = accentStyle.Bold(true)
	tabStyle     = pendingStyle.Padding(0, 1)
	activeTab    = brightStyle.Bold(true).Underline(true).Padding(0, 1)
	boardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the capture UI.
func NewModel(opts Options) (*Model, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	submitter := opts.Submitter
	if submitter == nil {
		submitter = gateway.Discard{Logger: logger}
	}
	sched := newLoopScheduler(opts.Now)
	pipe, err := pipeline.New(pipeline.Options{
		Scheduler:    sched,
		Logger:       logger,
		Capture:      opts.Capture,
		Pattern:      opts.Pattern,
		Mode:         opts.Mode,
		Picker:       opts.Picker,
		NewSessionID: opts.NewSessionID,
		Recorder:     opts.Recorder,
	})
	if err != nil {
		return nil, err
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle
	m := &Model{
		ctx:       ctx,
		logger:    logger,
		sched:     sched,
		pipe:      pipe,
		submitter: submitter,
		history:   opts.History,
		capture:   opts.Capture,
		keys:      defaultKeyMap(),
		help:      help.New(),
		fill:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		countBar:  progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage()),
		spin:      sp,
	}
	m.loadFooterStats()
	return m, nil
}

// Pipeline exposes the underlying input pipeline.
func (m *Model) Pipeline() *pipeline.Pipeline { return m.pipe }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.sched.flush()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, tea.Batch(cmd, m.sched.flush())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return nil
	case timerMsg:
		m.sched.fire(msg.id)
		return nil
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case submitMsg:
		m.finishSession(msg)
		return nil
	case spinner.TickMsg:
		if !m.inflight {
			return nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case key.Matches(msg, m.keys.Reset):
		m.pipe.Reset()
		m.notice = ""
	case key.Matches(msg, m.keys.Pattern):
		m.switchMode(model.ModePattern)
	case key.Matches(msg, m.keys.Circular):
		m.switchMode(model.ModeCircular)
	case key.Matches(msg, m.keys.Drawing):
		m.switchMode(model.ModeDrawing)
	}
	return nil
}

func (m *Model) switchMode(mode model.Mode) {
	if mode == m.pipe.Mode() {
		return
	}
	if err := m.pipe.SwitchMode(mode); err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			m.notice = "wait for the batch to finish sending"
			return
		}
		m.logger.Error("failed to switch mode", slog.String("mode", string(mode)), slog.Any("err", err))
		m.notice = err.Error()
		return
	}
	m.notice = ""
	m.layout()
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	p := m.toSurface(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.pipe.Press(p)
		case tea.MouseButtonRight:
			m.pipe.Toggle(p)
		}
	case tea.MouseActionMotion:
		m.pipe.Move(p)
	case tea.MouseActionRelease:
		if msg.Button == tea.MouseButtonRight || msg.Button == tea.MouseButtonMiddle {
			return nil
		}
		if batch, ok := m.pipe.Release(); ok {
			return m.submit(batch)
		}
	}
	return nil
}

// toSurface maps a terminal cell to the centre of its surface area.
func (m *Model) toSurface(col, row int) model.Point {
	return model.Point{
		X: (float64(col-m.boardLeft) + 0.5) * unitsPerCol,
		Y: (float64(row-m.boardTop) + 0.5) * unitsPerRow,
	}
}

// layout sizes the surface to the terminal and records where the board sits.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	cols := max(m.width-2, 1)
	rows := max(m.height-chromeLines, 1)
	m.pipe.Resize(math.Min(float64(cols)*unitsPerCol, float64(rows)*unitsPerRow))
	b := newBoard(m.pipe.Task().Size())
	m.boardLeft = max((m.width-b.cols-2)/2, 0) + 1
	m.boardTop = headerLines + 1
	barWidth := max(min(m.width/3, 40), 10)
	m.fill.Width = barWidth
	m.countBar.Width = barWidth
	m.help.Width = m.width
}

func (m *Model) submit(batch model.Batch) tea.Cmd {
	m.inflight = true
	ctx, sub := m.ctx, m.submitter
	send := func() tea.Msg {
		res, err := sub.Submit(ctx, batch)
		return submitMsg{batch: batch, res: res, err: err}
	}
	return tea.Batch(send, m.spin.Tick)
}

func (m *Model) finishSession(msg submitMsg) {
	m.inflight = false
	out := m.pipe.Complete(msg.batch, msg.res, msg.err)
	if msg.err != nil {
		m.logger.Warn("batch submission failed",
			slog.String("session_id", out.SessionID),
			slog.Any("err", msg.err))
	}
	m.last = &out
	if m.history != nil {
		if _, err := m.history.InsertOutcome(m.ctx, out); err != nil {
			m.logger.Error("failed to save session", slog.Any("err", err))
		}
	}
	m.addToSummary(out)
}

func (m *Model) loadFooterStats() {
	if m.history == nil {
		return
	}
	outcomes, err := m.history.ListOutcomes(m.ctx, model.HistoryFilter{})
	if err != nil {
		m.logger.Error("failed to load session history", slog.Any("err", err))
		return
	}
	m.all = stats.Summarize(outcomes)
	if len(outcomes) > 0 {
		last := outcomes[len(outcomes)-1]
		m.last = &last
	}
}

func (m *Model) addToSummary(out model.SessionOutcome) {
	if out.Metric != nil {
		total := m.all.MeanMetric*float64(m.all.WithMetric) + *out.Metric
		m.all.WithMetric++
		m.all.MeanMetric = total / float64(m.all.WithMetric)
		m.all.MaxMetric = math.Max(m.all.MaxMetric, *out.Metric)
	}
	if out.Error != "" {
		m.all.Failed++
	}
	m.all.Sessions++
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	snap := m.pipe.Snapshot()
	board := drawTask(m.pipe.Task())
	pad := strings.Repeat(" ", max(m.boardLeft-1, 0))
	boxed := boardStyle.Render(board.render())
	lines := []string{
		m.renderTitle(),
		m.renderStatus(snap),
	}
	for _, line := range strings.Split(boxed, "\n") {
		lines = append(lines, pad+line)
	}
	lines = append(lines,
		center(m.renderMetric(snap), m.width),
		center(m.renderFooter(snap), m.width),
		m.help.View(m.keys),
	)
	return strings.Join(lines, "\n")
}

func (m *Model) renderTitle() string {
	tabs := make([]string, 0, len(model.Modes))
	for i, mode := range model.Modes {
		label := fmt.Sprintf("%d %s", i+1, mode)
		if mode == m.pipe.Mode() {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return titleStyle.Render("tracepad") + "  " + strings.Join(tabs, "")
}

func (m *Model) renderStatus(snap capture.Snapshot) string {
	state := snap.State.String()
	if snap.Settling {
		state = "settling"
	}
	parts := []string{
		pendingStyle.Render(fmt.Sprintf("%-10s", state)),
		m.fill.ViewAs(fillRatio(snap)),
		pendingStyle.Render(fmt.Sprintf("%d/%d", snap.Len, snap.Cap)),
	}
	switch {
	case m.inflight:
		parts = append(parts, m.spin.View()+" sending")
	case snap.Counting:
		parts = append(parts,
			m.countBar.ViewAs(countdownRatio(snap.Countdown, m.capture.IdleTimeout)),
			accentStyle.Render(fmt.Sprintf("%.1fs", snap.Countdown.Seconds())))
	}
	return " " + strings.Join(parts, " ")
}

func (m *Model) renderMetric(snap capture.Snapshot) string {
	switch {
	case m.notice != "":
		return accentStyle.Render(m.notice)
	case snap.LastError != "":
		return errorStyle.Render("Submit failed: " + snap.LastError)
	case snap.HasMetric:
		return brightStyle.Render(fmt.Sprintf("Metric %.2f%% · %s", snap.Metric, stats.Classify(snap.Metric)))
	}
	return pendingStyle.Render(hint(m.pipe.Mode()))
}

func (m *Model) renderFooter(snap capture.Snapshot) string {
	segments := []string{taskSegment(m.pipe.Task())}
	c := snap.Counters
	segments = append(segments, fmt.Sprintf("Sessions %d · sent %d · dropped %d · failed %d",
		c.Sessions, c.Submitted, c.Abandoned, c.Failed))
	if m.last != nil && m.last.Metric != nil {
		segments = append(segments, fmt.Sprintf("Last %.2f%%", *m.last.Metric))
	}
	if m.all.WithMetric > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.2f%% over %d", m.all.MeanMetric, m.all.WithMetric))
	}
	footer := strings.Join(segments, "  ")
	if m.width > 0 {
		footer = runewidth.Truncate(footer, m.width, "…")
	}
	return footerStyle.Render(footer)
}

func taskSegment(t task.Task) string {
	switch t := t.(type) {
	case *task.Pattern:
		return fmt.Sprintf("Score %d", t.Score())
	case *task.Circular:
		return fmt.Sprintf("Turned %.0f°", math.Abs(t.Turned()))
	case *task.Drawing:
		return fmt.Sprintf("Strokes %d", len(t.Strokes()))
	}
	return ""
}

func hint(mode model.Mode) string {
	switch mode {
	case model.ModeCircular:
		return "Drag the knob around the ring"
	case model.ModeDrawing:
		return "Hold the left button and draw"
	}
	return "Drag the ball to the highlighted target"
}

func fillRatio(snap capture.Snapshot) float64 {
	if snap.Cap <= 0 {
		return 0
	}
	return math.Min(float64(snap.Len)/float64(snap.Cap), 1)
}

func countdownRatio(remaining, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return math.Max(0, math.Min(float64(remaining)/float64(total), 1))
}

func center(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}
