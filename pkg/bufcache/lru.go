package bufcache

import "container/list"

// lruTracker records recently-touched offsets for hit/miss accounting
// only — it never evicts an actual cached buffer. It mirrors the
// LRUCache in the original buffer-cache simulation: a fixed-capacity
// recency list used purely to decide whether a touch counts as a "hit"
// (recently seen) or a "miss" (falls off the tracked window), which in
// turn drives the simulated disk-latency sleep.
type lruTracker struct {
	capacity int
	entries  map[uint64]*list.Element
	order    *list.List // front = most recently touched
}

func newLRUTracker(capacity int) *lruTracker {
	return &lruTracker{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element),
		order:    list.New(),
	}
}

// touch records an access to offset and reports whether it was a hit.
func (l *lruTracker) touch(offset uint64) (hit bool) {
	if el, ok := l.entries[offset]; ok {
		l.order.MoveToFront(el)
		return true
	}

	if l.order.Len() >= l.capacity {
		back := l.order.Back()
		if back != nil {
			l.order.Remove(back)
			delete(l.entries, back.Value.(uint64))
		}
	}

	l.entries[offset] = l.order.PushFront(offset)
	return false
}

func (l *lruTracker) reset() {
	l.entries = make(map[uint64]*list.Element)
	l.order.Init()
}
