package ids

import (
	"math"
	"sort"
	"sync/atomic"
)

// WindowID is an opaque handle for a toolkit window. Zero is never allocated.
type WindowID uint32

// DragIconWindowID keys draw ticks for the drag icon surface, which has no
// host window of its own.
const DragIconWindowID WindowID = math.MaxUint32

// Valid reports whether id can refer to a real window.
func (id WindowID) Valid() bool {
	return id != 0 && id != DragIconWindowID
}

// RequestID correlates an asynchronous command with its response event.
// Zero means the request was never enqueued.
type RequestID uint64

// WindowAllocator hands out window ids. Ids are never reused for the
// lifetime of the allocator.
type WindowAllocator struct {
	next atomic.Uint32
}

// Next returns a fresh window id, or 0 if the id space is exhausted.
func (a *WindowAllocator) Next() WindowID {
	id := a.next.Add(1)
	if id == 0 || WindowID(id) == DragIconWindowID {
		return 0
	}
	return WindowID(id)
}

// RequestAllocator hands out request ids. Safe for concurrent use.
type RequestAllocator struct {
	next atomic.Uint64
}

// Next returns a fresh, non-zero request id.
func (a *RequestAllocator) Next() RequestID {
	return RequestID(a.next.Add(1))
}

// Correlation maps pending requests to the window that issued them.
// Requests not tied to a window use owner 0. Not safe for concurrent use;
// it lives on the event-loop thread.
type Correlation struct {
	pending map[RequestID]WindowID
}

// NewCorrelation creates an empty table.
func NewCorrelation() *Correlation {
	return &Correlation{pending: make(map[RequestID]WindowID)}
}

// Add registers id as pending for owner. Returns false for the reserved id 0
// or an id that is already pending.
func (c *Correlation) Add(id RequestID, owner WindowID) bool {
	if id == 0 {
		return false
	}
	if _, exists := c.pending[id]; exists {
		return false
	}
	c.pending[id] = owner
	return true
}

// Take consumes a pending request. The second result is false when the id
// was never registered, already consumed, or dropped with its window.
func (c *Correlation) Take(id RequestID) (WindowID, bool) {
	owner, ok := c.pending[id]
	if !ok {
		return 0, false
	}
	delete(c.pending, id)
	return owner, true
}

// Owner returns the window that owns a pending request without consuming it.
func (c *Correlation) Owner(id RequestID) (WindowID, bool) {
	owner, ok := c.pending[id]
	return owner, ok
}

// DropWindow forgets every pending request owned by w and returns them in
// ascending order.
func (c *Correlation) DropWindow(w WindowID) []RequestID {
	var dropped []RequestID
	for id, owner := range c.pending {
		if owner == w && w != 0 {
			dropped = append(dropped, id)
			delete(c.pending, id)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	return dropped
}

// Len returns the number of pending requests.
func (c *Correlation) Len() int {
	return len(c.pending)
}
