package runtime

import (
	"context"
	"math/rand"
	"time"
)

// Pacer inserts the "typing" delay between an answer and the next
// question. The wait must honor context cancellation so a session
// reset interrupts it deterministically.
type Pacer interface {
	Wait(ctx context.Context) error
}

// TypingPacer waits a bounded random interval.
type TypingPacer struct {
	Min time.Duration
	Max time.Duration
}

func NewTypingPacer() *TypingPacer {
	return &TypingPacer{Min: 600 * time.Millisecond, Max: 1400 * time.Millisecond}
}

func (p *TypingPacer) Wait(ctx context.Context) error {
	d := p.Min
	if p.Max > p.Min {
		d += time.Duration(rand.Int63n(int64(p.Max - p.Min)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer skips pacing. Used in tests.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
