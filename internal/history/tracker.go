// Package history tracks a bounded sliding window of request
// timestamps per identity. It is the only piece of cross-request
// shared mutable state in the decision core.
package history

import (
	"sync"
	"time"
)

// DefaultWindowCap is the maximum number of timestamps kept per
// identity. Oldest entries are evicted first on overflow.
const DefaultWindowCap = 100

// window is a fixed-capacity ring of timestamps, oldest first.
type window struct {
	mu    sync.Mutex
	items []time.Time
	head  int
	count int
	cap   int
}

func newWindow(capacity int) *window {
	return &window{
		items: make([]time.Time, capacity),
		cap:   capacity,
	}
}

// add appends a timestamp, overwriting the oldest entry when full.
func (w *window) add(ts time.Time) {
	idx := (w.head + w.count) % w.cap
	if w.count == w.cap {
		w.items[w.head] = ts
		w.head = (w.head + 1) % w.cap
	} else {
		w.items[idx] = ts
		w.count++
	}
}

// countAfter returns the number of entries strictly newer than cutoff.
func (w *window) countAfter(cutoff time.Time) int {
	n := 0
	for i := 0; i < w.count; i++ {
		if w.items[(w.head+i)%w.cap].After(cutoff) {
			n++
		}
	}
	return n
}

// Tracker maps identities to their request windows. Windows are
// created lazily on first use and live for the process lifetime; the
// map itself is unbounded in identity cardinality, but each window is
// capped.
type Tracker struct {
	mu         sync.Mutex
	identities map[string]*window
	cap        int
}

// New creates a tracker with the default per-identity window capacity.
func New() *Tracker {
	return NewWithCap(DefaultWindowCap)
}

// NewWithCap creates a tracker with the given per-identity capacity.
func NewWithCap(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultWindowCap
	}
	return &Tracker{
		identities: make(map[string]*window),
		cap:        capacity,
	}
}

// lookup returns the identity's window, creating it if needed.
func (t *Tracker) lookup(identity string) *window {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.identities[identity]
	if !ok {
		w = newWindow(t.cap)
		t.identities[identity] = w
	}
	return w
}

// Record appends a timestamp to the identity's window.
func (t *Tracker) Record(identity string, ts time.Time) {
	w := t.lookup(identity)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.add(ts)
}

// CountRecent counts entries strictly newer than ts minus the window
// duration. An identity with no history counts as zero.
func (t *Tracker) CountRecent(identity string, ts time.Time, within time.Duration) int {
	t.mu.Lock()
	w, ok := t.identities[identity]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.countAfter(ts.Add(-within))
}

// Tally counts entries strictly newer than ts minus the window
// duration and then records ts, as one atomic step under the
// identity's lock. The returned count does not include the recorded
// timestamp. Concurrent callers for the same identity serialize here;
// different identities do not contend.
func (t *Tracker) Tally(identity string, ts time.Time, within time.Duration) int {
	w := t.lookup(identity)
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.countAfter(ts.Add(-within))
	w.add(ts)
	return n
}

// Len returns the number of timestamps currently held for an identity.
func (t *Tracker) Len(identity string) int {
	t.mu.Lock()
	w, ok := t.identities[identity]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
