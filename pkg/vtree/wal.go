package vtree

import "sort"

// vtreeWALSize is the byte budget a WAL is sized against: 64 KiB,
// matching spec.md's VTREE_WALSIZE constant.
const vtreeWALSize = 64 * 1024

// kvpSize approximates sizeof(kvp) from the original budget: an 8-byte
// key plus a 32-byte value.
const kvpSize = 8 + 32

// DefaultMaxWAL is VTREE_WALSIZE / sizeof(kvp), the default WAL
// capacity in entries.
const DefaultMaxWAL = vtreeWALSize / kvpSize

// FlushMode selects how a full or explicitly-flushed WAL is applied to
// the underlying tree.
type FlushMode int

const (
	// FlushPointInserts applies every buffered entry as its own Insert
	// call.
	FlushPointInserts FlushMode = iota
	// FlushBulk applies the whole buffer as one BulkInsert call.
	FlushBulk
)

// WAL fronts any Tree with a bounded, sorted, in-memory write buffer.
// Insert performs an in-place sorted insert into the buffer rather than
// touching the underlying tree; Find, Ge, RangeQuery and Delete bypass
// the buffer entirely and delegate straight through, so a key sitting
// in the WAL is invisible to reads until the next flush. A WAL is not
// internally synchronized: callers must serialize access to a single
// instance themselves.
type WAL struct {
	under Tree
	mode  FlushMode
	max   int
	buf   []KV
}

// NewWAL wraps under with a WAL-fronted write buffer capped at max
// entries (DefaultMaxWAL if max <= 0), flushing in the given mode.
func NewWAL(under Tree, max int, mode FlushMode) *WAL {
	if max <= 0 {
		max = DefaultMaxWAL
	}
	return &WAL{under: under, mode: mode, max: max, buf: make([]KV, 0, max)}
}

// Insert performs a sorted in-place insert into the WAL buffer,
// flushing first if the buffer is already at capacity.
func (w *WAL) Insert(key uint64, value []byte) error {
	if len(w.buf) >= w.max {
		if err := w.Flush(); err != nil {
			return err
		}
	}

	idx := sort.Search(len(w.buf), func(i int) bool { return w.buf[i].Key >= key })
	if idx < len(w.buf) && w.buf[idx].Key == key {
		w.buf[idx].Value = value
		return nil
	}

	w.buf = append(w.buf, KV{})
	copy(w.buf[idx+1:], w.buf[idx:len(w.buf)-1])
	w.buf[idx] = KV{Key: key, Value: value}
	return nil
}

// Flush applies every buffered entry to the underlying tree — as one
// BulkInsert in FlushBulk mode, or as sequential point inserts in
// FlushPointInserts mode — then empties the buffer.
func (w *WAL) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	var err error
	switch w.mode {
	case FlushBulk:
		err = w.under.BulkInsert(w.buf)
	default:
		for _, kv := range w.buf {
			if ierr := w.under.Insert(kv.Key, kv.Value); ierr != nil {
				err = ierr
				break
			}
		}
	}

	w.buf = w.buf[:0]
	return err
}

// Len returns the number of entries currently buffered.
func (w *WAL) Len() int { return len(w.buf) }

// BulkInsert flushes any buffered entries, then applies items directly
// to the underlying tree; bulk loads are assumed pre-sorted and large
// enough that coalescing them through the WAL buys nothing.
func (w *WAL) BulkInsert(items []KV) error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.under.BulkInsert(items)
}

// Delete bypasses the WAL buffer and delegates directly; a key still
// sitting unflushed in the buffer is not visible here; see the type
// doc comment.
func (w *WAL) Delete(key uint64) ([]byte, error) { return w.under.Delete(key) }

// Find bypasses the WAL buffer and delegates directly.
func (w *WAL) Find(key uint64) ([]byte, error) { return w.under.Find(key) }

// Ge bypasses the WAL buffer and delegates directly.
func (w *WAL) Ge(key uint64) (uint64, []byte, error) { return w.under.Ge(key) }

// RangeQuery bypasses the WAL buffer and delegates directly.
func (w *WAL) RangeQuery(low, high uint64, max int) []KV {
	return w.under.RangeQuery(low, high, max)
}

// Checkpoint flushes the WAL before delegating to the underlying tree,
// so every checkpoint observes a fully-applied buffer.
func (w *WAL) Checkpoint() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.under.Checkpoint()
}

// GetKeySize delegates to the underlying tree.
func (w *WAL) GetKeySize() int { return w.under.GetKeySize() }
