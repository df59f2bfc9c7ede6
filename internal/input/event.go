// Package input defines the recorded pointer event log.
package input

import (
	"fmt"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

// Kind names a recorded event.
type Kind string

const (
	KindPress   Kind = "press"
	KindMove    Kind = "move"
	KindRelease Kind = "release"
	KindToggle  Kind = "toggle"
	KindReset   Kind = "reset"
	KindResize  Kind = "resize"
	KindMode    Kind = "mode"
)

// Event is one line of an event log. T is milliseconds since recording began.
type Event struct {
	T     int64      `json:"t"`
	Kind  Kind       `json:"kind"`
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Width float64    `json:"width,omitempty"`
	Mode  model.Mode `json:"mode,omitempty"`
}

// Point returns the event position.
func (e Event) Point() model.Point {
	return model.Point{X: e.X, Y: e.Y}
}

// Offset returns T as a duration.
func (e Event) Offset() time.Duration {
	return time.Duration(e.T) * time.Millisecond
}

// Validate checks that the event is well formed.
func (e Event) Validate() error {
	if e.T < 0 {
		return fmt.Errorf("negative time %d", e.T)
	}
	switch e.Kind {
	case KindPress, KindMove, KindRelease, KindToggle, KindReset:
		return nil
	case KindResize:
		if e.Width <= 0 {
			return fmt.Errorf("resize needs a positive width")
		}
		return nil
	case KindMode:
		if _, err := model.ParseMode(string(e.Mode)); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("unknown event kind %q", e.Kind)
}
