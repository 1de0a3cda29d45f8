// Package reveal progressively discloses a pending edit's target text,
// producing diff frames against the original source on a fixed tick.
package reveal

import (
	"sync"
	"time"

	"github.com/fenwick/draftpilot/internal/diff"
)

// DefaultInterval is the tick period between frames. With TargetTicks steps
// the full reveal takes roughly two seconds regardless of text length.
const (
	DefaultInterval = 20 * time.Millisecond
	TargetTicks     = 120
)

// Frame is one intermediate render state. Runs is the alignment of the
// partial text against the ORIGINAL source, so every frame shows the
// cumulative delta from the pre-edit draft.
type Frame struct {
	Partial   string     `json:"partial"`
	Runs      []diff.Run `json:"runs"`
	Truncated bool       `json:"truncated"`
	Done      bool       `json:"done"`
}

// StepSize returns how many characters each tick reveals for a target of n
// characters: max(1, n/TargetTicks).
func StepSize(n int) int {
	step := n / TargetTicks
	if step < 1 {
		return 1
	}
	return step
}

// PartialAt returns the first k*step characters of target.
func PartialAt(target string, k, step int) string {
	r := []rune(target)
	end := k * step
	if end > len(r) {
		end = len(r)
	}
	return string(r[:end])
}

// Animator reveals target over source, emitting Frames until the target is
// fully disclosed. It does not auto-commit: after the final frame the channel
// is closed and the caller's preview stays static pending user action.
type Animator struct {
	frames   chan Frame
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New starts an animator goroutine. interval <= 0 uses DefaultInterval.
// The returned animator must be stopped (or drained) to release the timer.
func New(source, target string, interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	a := &Animator{
		frames: make(chan Frame, 8),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.run(source, target, interval)
	return a
}

// Frames is the stream of render states. It is closed after the final frame
// or after Stop.
func (a *Animator) Frames() <-chan Frame { return a.frames }

// Stop cancels the animation and waits for the timer goroutine to exit.
// Safe to call more than once and after completion.
func (a *Animator) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

func (a *Animator) run(source, target string, interval time.Duration) {
	defer close(a.done)
	defer close(a.frames)

	step := StepSize(len([]rune(target)))
	total := len([]rune(target))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for k := 1; ; k++ {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		}

		partial := PartialAt(target, k, step)
		runs, truncated := diff.Diff(source, partial)
		frame := Frame{
			Partial:   partial,
			Runs:      runs,
			Truncated: truncated,
			Done:      k*step >= total,
		}

		select {
		case a.frames <- frame:
		case <-a.stop:
			return
		}

		if frame.Done {
			return
		}
	}
}
