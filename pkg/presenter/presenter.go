// Package presenter defines the line-oriented output contract build and
// install steps stream through, and a small reference implementation
// used by tests and the default CLI wiring.
package presenter

import "sync"

// Presenter receives one complete output line at a time from a running
// build/install step, in the order the child process produced them. The
// core is single-threaded, so an implementation only needs to be safe
// for reentrant calls from the same goroutine.
type Presenter interface {
	OnLine(line string)
}

// Func adapts a plain function to a Presenter.
type Func func(line string)

// OnLine implements Presenter.
func (f Func) OnLine(line string) { f(line) }

// Discard is a Presenter that does nothing.
var Discard Presenter = Func(func(string) {})

// RingBuffer is a Presenter that retains at most Capacity lines,
// dropping the oldest when full. This backs the "retained tail" that
// the Build Driver surfaces as error context (spec §4.6, §7).
type RingBuffer struct {
	Capacity int

	mu    sync.Mutex
	lines []string
}

// NewRingBuffer constructs a RingBuffer retaining at most capacity
// lines. A non-positive capacity is treated as the spec default of 50.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 50
	}
	return &RingBuffer{Capacity: capacity}
}

// OnLine implements Presenter.
func (r *RingBuffer) OnLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, line)
	if over := len(r.lines) - r.Capacity; over > 0 {
		r.lines = r.lines[over:]
	}
}

// Lines returns a snapshot of the retained tail, oldest first.
func (r *RingBuffer) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Tee returns a Presenter that forwards every line to all of ps.
func Tee(ps ...Presenter) Presenter {
	return Func(func(line string) {
		for _, p := range ps {
			if p != nil {
				p.OnLine(line)
			}
		}
	})
}
