// Package bufcache simulates the buffer-cache layer the B+tree engine is
// written against: a map from disk offset to an in-memory buffer, with
// per-buffer shared/exclusive latches, a dirty set consumed only by
// checkpoint, and an LRU-based miss-latency model standing in for real
// device I/O. No bytes are ever persisted to a device; the only "I/O" is
// an optional artificial sleep on an LRU miss.
package bufcache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ssargent/blt/pkg/diskptr"
)

// DefaultLRUCapacity is the number of offsets the miss-latency tracker
// remembers before it starts reporting misses again.
const DefaultLRUCapacity = 10000

// DefaultThroughputBytesPerSec is the simulated device throughput used to
// compute the miss-latency sleep: sleep = byteLen / throughput.
const DefaultThroughputBytesPerSec = 500_000_000 // 500 MB/s

// Options configures a Cache.
type Options struct {
	// LRUCapacity is the number of offsets tracked for hit/miss
	// accounting. Zero selects DefaultLRUCapacity.
	LRUCapacity int

	// DiskLatency enables the simulated sleep on an LRU miss. Disabled by
	// default so unit tests run at full speed.
	DiskLatency bool

	// ThroughputBytesPerSec controls the miss-latency sleep duration. Zero
	// selects DefaultThroughputBytesPerSec.
	ThroughputBytesPerSec float64
}

// Cache is the buffer cache: an offset→*Buffer map guarded by a process-
// wide lock, a set of dirty buffers consumed only by checkpoint, and an
// allocator for fresh pages.
type Cache struct {
	Allocator Allocator

	mu      sync.Mutex
	buffers map[uint64]*Buffer
	lru     *lruTracker
	opts    Options

	dirtyMu sync.Mutex
	dirty   map[*Buffer]struct{}

	acquires int64 // atomic, for leak detection via Balanced
	releases int64 // atomic

	metrics *metrics
}

// New creates an empty buffer cache.
func New(opts Options) *Cache {
	if opts.LRUCapacity == 0 {
		opts.LRUCapacity = DefaultLRUCapacity
	}
	if opts.ThroughputBytesPerSec == 0 {
		opts.ThroughputBytesPerSec = DefaultThroughputBytesPerSec
	}

	return &Cache{
		buffers: make(map[uint64]*Buffer),
		lru:     newLRUTracker(opts.LRUCapacity),
		dirty:   make(map[*Buffer]struct{}),
		opts:    opts,
		metrics: newMetrics(),
	}
}

// Get resolves ptr to a buffer, creating and zero-filling it on first
// reference, then latches it in mode. The cache's own map lock is held
// only for the lookup/insert and the LRU touch, and is released before
// the per-buffer latch is acquired, per the discipline in the engine's
// concurrency model.
func (c *Cache) Get(ptr diskptr.Ptr, mode LatchMode) *Buffer {
	byteLen := int(ptr.ByteSize())

	c.mu.Lock()
	b, ok := c.buffers[ptr.Offset]
	if !ok {
		b = newBuffer(ptr.Offset, byteLen)
		c.buffers[ptr.Offset] = b
		c.metrics.buffers.Inc()
	}
	hit := c.lru.touch(ptr.Offset)
	c.mu.Unlock()

	if hit {
		c.metrics.hits.Inc()
	} else {
		c.metrics.misses.Inc()
		if c.opts.DiskLatency {
			time.Sleep(time.Duration(float64(byteLen) / c.opts.ThroughputBytesPerSec * float64(time.Second)))
		}
	}

	c.Lock(b, mode)
	return b
}

// Lock acquires b's latch in the given mode.
func (c *Cache) Lock(b *Buffer, mode LatchMode) {
	atomic.AddInt64(&c.acquires, 1)
	c.metrics.acquires.Inc()
	if mode == Exclusive {
		b.latch.Lock()
	} else {
		b.latch.RLock()
	}
}

// Unlock releases b's latch, previously acquired in the given mode. Mode
// must match the mode used to acquire it. The acquire/release counters
// behind Balanced count calls only; they do not record the mode.
func (c *Cache) Unlock(b *Buffer, mode LatchMode) {
	atomic.AddInt64(&c.releases, 1)
	c.metrics.releases.Inc()
	if mode == Exclusive {
		b.latch.Unlock()
	} else {
		b.latch.RUnlock()
	}
}

// Dirty adds b to the dirty set, consumed only by checkpoint.
func (c *Cache) Dirty(b *Buffer) {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	if _, ok := c.dirty[b]; !ok {
		c.dirty[b] = struct{}{}
		c.metrics.dirty.Inc()
	}
}

// Clean removes b from the dirty set. WriteAsync is an alias kept for
// parity with the original buffer-cache API, where bawrite and bclean are
// distinct entry points that both simply drop a buffer from the dirty set
// in this RAM-backed simulation.
func (c *Cache) Clean(b *Buffer) {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	if _, ok := c.dirty[b]; ok {
		delete(c.dirty, b)
		c.metrics.dirty.Dec()
	}
}

// WriteAsync is an alias for Clean; see Clean's doc comment.
func (c *Cache) WriteAsync(b *Buffer) { c.Clean(b) }

// IsDirty reports whether b is currently in the dirty set.
func (c *Cache) IsDirty(b *Buffer) bool {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	_, ok := c.dirty[b]
	return ok
}

// DirtySet returns a snapshot of the currently-dirty buffers.
func (c *Cache) DirtySet() []*Buffer {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()

	out := make([]*Buffer, 0, len(c.dirty))
	for b := range c.dirty {
		out = append(out, b)
	}
	return out
}

// ClearDirty empties the dirty set. Called once a checkpoint cycle has
// copied every dirty node.
func (c *Cache) ClearDirty() {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	c.dirty = make(map[*Buffer]struct{})
	c.metrics.dirty.Set(0)
}

// Balanced reports whether every latch acquisition has a matching
// release. Callers assert this after every public tree operation returns.
func (c *Cache) Balanced() bool {
	return atomic.LoadInt64(&c.acquires) == atomic.LoadInt64(&c.releases)
}

// Reset frees every buffer, clears the dirty set, and rewinds the
// allocator. Used between test phases; never call while any buffer from a
// prior generation is still referenced.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.buffers = make(map[uint64]*Buffer)
	c.lru.reset()
	c.mu.Unlock()

	c.dirtyMu.Lock()
	c.dirty = make(map[*Buffer]struct{})
	c.dirtyMu.Unlock()

	c.Allocator.Reset()
	atomic.StoreInt64(&c.acquires, 0)
	atomic.StoreInt64(&c.releases, 0)
	c.metrics.buffers.Set(0)
	c.metrics.dirty.Set(0)
}
