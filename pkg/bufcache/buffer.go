package bufcache

import "sync"

// LatchMode selects shared (reader) or exclusive (writer) access to a
// buffer's latch.
type LatchMode int

const (
	// Shared allows any number of concurrent readers.
	Shared LatchMode = iota
	// Exclusive allows exactly one writer and excludes all readers.
	Exclusive
)

// Buffer is a single cached block: the raw bytes backing a B+tree node
// (or any other fixed-size block), its page offset, and the reader/writer
// latch that is the only concurrency primitive the tree sees. A buffer is
// created on first reference for its offset and lives for the process
// lifetime — the cache never evicts, it only tracks LRU residency for
// hit/miss accounting (see lruTracker).
type Buffer struct {
	Data   []byte
	Offset uint64

	latch sync.RWMutex
}

func newBuffer(offset uint64, byteLen int) *Buffer {
	return &Buffer{
		Data:   make([]byte, byteLen),
		Offset: offset,
	}
}
