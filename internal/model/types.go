// Package model defines shared data structures.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for sample timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Point is a surface-relative coordinate.
type Point struct {
	X float64
	Y float64
}

// Dist returns the planar distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// TelemetrySample is one recorded movement sample.
type TelemetrySample struct {
	Timestamp string  `json:"timestamp"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	DeltaTime float64 `json:"deltatime"`
}

// NewSample builds a sample from a surface position, wall time and elapsed time.
func NewSample(p Point, at time.Time, delta time.Duration) TelemetrySample {
	return TelemetrySample{
		Timestamp: at.UTC().Format(TimestampLayout),
		X:         int(math.Round(p.X)),
		Y:         int(math.Round(p.Y)),
		DeltaTime: math.Round(delta.Seconds()*1e4) / 1e4,
	}
}

// SessionState is the capture lifecycle state.
type SessionState int

const (
	StateIdle SessionState = iota
	StateCapturing
	StateCooldown
	StateSending
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateCooldown:
		return "cooldown"
	case StateSending:
		return "sending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode selects the interaction task feeding the capture pipeline.
type Mode string

const (
	ModePattern  Mode = "pattern"
	ModeCircular Mode = "circular"
	ModeDrawing  Mode = "drawing"
)

// Modes lists the interaction modes in selector order.
var Modes = []Mode{ModePattern, ModeCircular, ModeDrawing}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePattern:
		return ModePattern, nil
	case ModeCircular:
		return ModeCircular, nil
	case ModeDrawing:
		return ModeDrawing, nil
	}
	return "", fmt.Errorf("unknown mode %q (available: pattern, circular, drawing)", s)
}

// Batch is the complete sample sequence of one session handed to the gateway.
type Batch struct {
	SessionID string
	Mode      Mode
	StartedAt time.Time
	EndedAt   time.Time
	Samples   []TelemetrySample
}

// SubmitResult is the gateway answer for a batch.
type SubmitResult struct {
	Metric    float64
	HasMetric bool
}

// SessionOutcome records what happened to a submitted batch.
type SessionOutcome struct {
	SessionID   string
	Mode        Mode
	StartedAt   time.Time
	SubmittedAt time.Time
	Samples     int
	DurationMs  int64
	Metric      *float64
	Error       string
}

// HistoryFilter narrows outcome listings.
type HistoryFilter struct {
	Mode  Mode
	Since *time.Time
	Last  int
}

// CaptureConfig tunes the capture state machine.
type CaptureConfig struct {
	MaxBatchSize      int
	MoveThreshold     float64
	Tolerance         time.Duration
	IdleTimeout       time.Duration
	CountdownInterval time.Duration
	SettleWindow      time.Duration
}

// DefaultCaptureConfig returns the stock capture tuning.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		MaxBatchSize:      120,
		MoveThreshold:     5,
		Tolerance:         time.Millisecond,
		IdleTimeout:       2000 * time.Millisecond,
		CountdownInterval: 50 * time.Millisecond,
		SettleWindow:      800 * time.Millisecond,
	}
}

// PatternConfig tunes the trajectory target engine.
type PatternConfig struct {
	ArrivalRadius float64
	MaxSize       float64
	Stiffness     float64
	Damping       float64
	Mass          float64
}

// DefaultPatternConfig returns the stock pattern tuning.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		ArrivalRadius: 30,
		MaxSize:       400,
		Stiffness:     300,
		Damping:       25,
		Mass:          1,
	}
}
