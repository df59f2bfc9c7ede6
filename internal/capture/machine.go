package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/model"
)

// Options configure a Machine.
type Options struct {
	Scheduler    clock.Scheduler
	Logger       *slog.Logger
	NewSessionID func() string
	// OnChange is called after every handler that changed observable state.
	OnChange func(Snapshot)
	// OnAbandon is called after a session is discarded, whatever the trigger.
	OnAbandon func()
}

// Counters tracks session outcomes over the machine lifetime.
type Counters struct {
	Sessions  int
	Abandoned int
	Submitted int
	Failed    int
}

// Snapshot is a read-only view of the machine for renderers.
type Snapshot struct {
	State      model.SessionState
	SessionID  string
	Len        int
	Cap        int
	Countdown  time.Duration
	Counting   bool
	Metric     float64
	HasMetric  bool
	LastError  string
	Counters   Counters
	Settling   bool
	Capturing  bool
	BufferFull bool
}

// MoveResult reports what a move did.
type MoveResult int

const (
	MoveIgnored MoveResult = iota
	MoveRejected
	MoveAccepted
	MoveRecorded
	MoveDropped
)

// Machine owns the capture session: state, buffer and timers.
type Machine struct {
	cfg       model.CaptureConfig
	sched     clock.Scheduler
	logger    *slog.Logger
	newID     func() string
	onChange  func(Snapshot)
	onAbandon func()

	state     model.SessionState
	buf       *Buffer
	filter    *Filter
	idle      *Timer
	countdown *Countdown
	settle    *Timer

	sessionID string
	startedAt time.Time
	inFlight  bool
	metric    float64
	hasMetric bool
	lastErr   string
	counters  Counters
}

// New validates cfg and returns an idle machine.
func New(cfg model.CaptureConfig, opts Options) (*Machine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if opts.Scheduler == nil {
		return nil, errors.New("capture: scheduler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewSessionID
	if newID == nil {
		newID = uuid.NewString
	}
	m := &Machine{
		cfg:       cfg,
		sched:     opts.Scheduler,
		logger:    logger,
		newID:     newID,
		onChange:  opts.OnChange,
		onAbandon: opts.OnAbandon,
		state:     model.StateIdle,
		buf:       NewBuffer(cfg.MaxBatchSize),
		filter:    NewFilter(cfg.MoveThreshold, cfg.Tolerance),
	}
	m.idle = NewTimer(m.sched, m.abandon)
	m.settle = NewTimer(m.sched, m.settled)
	m.countdown = NewCountdown(m.sched, cfg.CountdownInterval, func(time.Duration) { m.changed() })
	return m, nil
}

// ValidateConfig checks capture tuning values.
func ValidateConfig(cfg model.CaptureConfig) error {
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be > 0")
	}
	if cfg.MoveThreshold < 0 {
		return fmt.Errorf("move threshold must be >= 0")
	}
	if cfg.Tolerance < 0 {
		return fmt.Errorf("tolerance must be >= 0")
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be > 0")
	}
	if cfg.CountdownInterval <= 0 {
		return fmt.Errorf("countdown interval must be > 0")
	}
	if cfg.SettleWindow < 0 {
		return fmt.Errorf("settle window must be >= 0")
	}
	return nil
}

// State returns the current session state.
func (m *Machine) State() model.SessionState { return m.state }

// Len returns the number of buffered samples.
func (m *Machine) Len() int { return m.buf.Len() }

// Samples returns a copy of the buffered samples.
func (m *Machine) Samples() []model.TelemetrySample { return m.buf.Samples() }

// Snapshot returns the observable machine state.
func (m *Machine) Snapshot() Snapshot {
	remaining, counting := m.countdown.Remaining()
	return Snapshot{
		State:      m.state,
		SessionID:  m.sessionID,
		Len:        m.buf.Len(),
		Cap:        m.buf.Cap(),
		Countdown:  remaining,
		Counting:   counting,
		Metric:     m.metric,
		HasMetric:  m.hasMetric,
		LastError:  m.lastErr,
		Counters:   m.counters,
		Settling:   m.state == model.StateSending && !m.inFlight,
		Capturing:  m.state == model.StateCapturing,
		BufferFull: m.buf.Full(),
	}
}

// Press starts or resumes capturing at p. It is ignored while sending.
func (m *Machine) Press(p model.Point) bool {
	if m.state == model.StateSending {
		return false
	}
	m.stopTimers()
	m.filter.Reset(p, m.sched.Now())
	m.state = model.StateCapturing
	m.changed()
	return true
}

// Move feeds one raw pointer position while capturing.
func (m *Machine) Move(p model.Point) MoveResult {
	if m.state != model.StateCapturing {
		return MoveIgnored
	}
	now := m.sched.Now()
	d := m.filter.Observe(p, now)
	if !d.Accepted {
		return MoveRejected
	}
	m.idle.Restart(m.cfg.IdleTimeout)
	if !d.Record {
		return MoveAccepted
	}
	if m.sessionID == "" {
		m.sessionID = m.newID()
		m.startedAt = now
		m.counters.Sessions++
		m.logger.Debug("capture session started", slog.String("session", m.sessionID))
	}
	if err := m.buf.Append(model.NewSample(p, now, d.Delta)); err != nil {
		return MoveDropped
	}
	m.changed()
	return MoveRecorded
}

// Release ends a press. When the buffer is full the returned batch must be
// transmitted and the result reported through Complete.
func (m *Machine) Release() (model.Batch, bool) {
	if m.state != model.StateCapturing {
		return model.Batch{}, false
	}
	m.stopTimers()
	switch n := m.buf.Len(); {
	case n >= m.cfg.MaxBatchSize:
		m.state = model.StateSending
		m.inFlight = true
		batch := model.Batch{
			SessionID: m.sessionID,
			StartedAt: m.startedAt,
			EndedAt:   m.sched.Now(),
			Samples:   m.buf.Samples(),
		}
		m.logger.Info("submitting batch", slog.String("session", batch.SessionID), slog.Int("samples", len(batch.Samples)))
		m.changed()
		return batch, true
	case n > 0:
		m.state = model.StateCooldown
		deadline := m.sched.Now().Add(m.cfg.IdleTimeout)
		m.idle.RestartAt(deadline)
		m.countdown.Start(deadline)
	default:
		m.state = model.StateIdle
	}
	m.changed()
	return model.Batch{}, false
}

// Toggle handles the alternate trigger: it starts capturing when not capturing
// and abandons the session when capturing.
func (m *Machine) Toggle(p model.Point) {
	switch m.state {
	case model.StateSending:
		return
	case model.StateCapturing:
		m.abandon()
	default:
		m.Press(p)
	}
}

// Reset unconditionally abandons the current session. It is ignored while a
// batch is being transmitted.
func (m *Machine) Reset() {
	if m.state == model.StateSending {
		return
	}
	m.abandon()
}

// Complete reports the gateway outcome for the batch returned by Release.
func (m *Machine) Complete(res model.SubmitResult, err error) {
	if m.state != model.StateSending || !m.inFlight {
		return
	}
	m.inFlight = false
	if err != nil {
		m.counters.Failed++
		m.lastErr = err.Error()
		m.logger.Error("transmission failed", slog.String("session", m.sessionID), slog.Any("error", err))
	} else {
		m.counters.Submitted++
		m.lastErr = ""
		if res.HasMetric {
			m.metric = res.Metric
			m.hasMetric = true
		}
		m.logger.Info("batch submitted", slog.String("session", m.sessionID), slog.Bool("has_metric", res.HasMetric), slog.Float64("metric", res.Metric))
	}
	m.clearSession()
	m.settle.Restart(m.cfg.SettleWindow)
	m.changed()
}

func (m *Machine) settled() {
	if m.state != model.StateSending {
		return
	}
	m.state = model.StateIdle
	m.changed()
}

func (m *Machine) abandon() {
	if m.state == model.StateCooldown {
		// The idle timer can fire before the last tick at the shared deadline.
		m.countdown.Finish()
	}
	if m.sessionID != "" {
		m.counters.Abandoned++
		m.logger.Debug("capture session abandoned", slog.String("session", m.sessionID), slog.Int("samples", m.buf.Len()))
	}
	m.stopTimers()
	m.clearSession()
	m.state = model.StateIdle
	if m.onAbandon != nil {
		m.onAbandon()
	}
	m.changed()
}

func (m *Machine) clearSession() {
	m.buf.Clear()
	m.sessionID = ""
	m.startedAt = time.Time{}
}

func (m *Machine) stopTimers() {
	m.idle.Stop()
	m.countdown.Stop()
}

func (m *Machine) changed() {
	if m.onChange != nil {
		m.onChange(m.Snapshot())
	}
}
