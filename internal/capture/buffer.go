package capture

import (
	"errors"

	"github.com/verte-zerg/tracepad/internal/model"
)

// ErrBufferFull is returned when appending to a buffer at capacity.
var ErrBufferFull = errors.New("session buffer is full")

// Buffer is a capacity-bounded, append-only sample sequence.
type Buffer struct {
	samples  []model.TelemetrySample
	capacity int
}

// NewBuffer returns an empty buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		samples:  make([]model.TelemetrySample, 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return b.capacity }

// Full reports whether the buffer reached capacity.
func (b *Buffer) Full() bool { return len(b.samples) >= b.capacity }

// Append adds s at the end. It never grows the buffer past capacity.
func (b *Buffer) Append(s model.TelemetrySample) error {
	if b.Full() {
		return ErrBufferFull
	}
	b.samples = append(b.samples, s)
	return nil
}

// Clear drops every sample.
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
}

// Samples returns a copy of the buffered samples in insertion order.
func (b *Buffer) Samples() []model.TelemetrySample {
	out := make([]model.TelemetrySample, len(b.samples))
	copy(out, b.samples)
	return out
}
