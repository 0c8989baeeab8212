package httpserver

import (
	"sync"

	"github.com/arbwatch/pmspread/pkg/types"
)

// recentWindowCapacity bounds the in-memory ring buffer the debug HTTP
// surface reads from; it is not a durable store (see internal/storage
// for that), just a window onto recent Spread Detector activity.
const recentWindowCapacity = 200

// WindowRecorder keeps a bounded ring buffer of recent closed windows
// for the debug HTTP surface, independent of the durable storage
// writer. Safe for concurrent Record/Recent calls.
type WindowRecorder struct {
	mu     sync.Mutex
	events []types.WindowCloseEvent
	next   int
	full   bool
}

// NewWindowRecorder creates an empty recorder.
func NewWindowRecorder() *WindowRecorder {
	return &WindowRecorder{events: make([]types.WindowCloseEvent, recentWindowCapacity)}
}

// Record appends a closed window, evicting the oldest entry once full.
func (r *WindowRecorder) Record(ev types.WindowCloseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = ev
	r.next = (r.next + 1) % recentWindowCapacity
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns a snapshot of recorded windows, newest last.
func (r *WindowRecorder) Recent() []types.WindowCloseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]types.WindowCloseEvent, r.next)
		copy(out, r.events[:r.next])
		return out
	}

	out := make([]types.WindowCloseEvent, recentWindowCapacity)
	copy(out, r.events[r.next:])
	copy(out[recentWindowCapacity-r.next:], r.events[:r.next])
	return out
}
