// Package pebbletree implements vtree.Tree over a cockroachdb/pebble
// store, proving the virtual-tree façade is genuinely polymorphic: it
// is the same capability interface pkg/bptree satisfies, backed by a
// completely different storage engine with its own LSM-based
// durability and checkpoint model.
package pebbletree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/ssargent/blt/pkg/vtree"
)

const keyWidth = 8 // uint64, big-endian so byte order matches numeric order

// Tree is a vtree.Tree backed by a pebble.DB.
type Tree struct {
	db            *pebble.DB
	valueSize     int
	checkpointDir string
	epoch         uint64 // atomic
}

// Open opens (creating if absent) a pebble store at path, configured to
// hold values up to valueSize bytes. checkpointDir is the parent
// directory under which Checkpoint creates one snapshot directory per
// call.
func Open(path string, valueSize int, checkpointDir string) (*Tree, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebbletree: open %s: %w", path, err)
	}
	return &Tree{db: db, valueSize: valueSize, checkpointDir: checkpointDir}, nil
}

// Close releases the underlying pebble.DB.
func (t *Tree) Close() error {
	return t.db.Close()
}

func encodeKey(k uint64) []byte {
	b := make([]byte, keyWidth)
	binary.BigEndian.PutUint64(b, k)
	return b
}

func decodeKey(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Insert stores value under key, overwriting any existing value.
func (t *Tree) Insert(key uint64, value []byte) error {
	if len(value) > t.valueSize {
		return vtree.ErrCapacityExceeded
	}
	return t.db.Set(encodeKey(key), value, pebble.NoSync)
}

// BulkInsert applies items as a single pebble batch.
func (t *Tree) BulkInsert(items []vtree.KV) error {
	batch := t.db.NewBatch()
	defer batch.Close()

	for _, it := range items {
		if len(it.Value) > t.valueSize {
			return vtree.ErrCapacityExceeded
		}
		if err := batch.Set(encodeKey(it.Key), it.Value, nil); err != nil {
			return err
		}
	}
	return t.db.Apply(batch, pebble.NoSync)
}

// Delete removes key, returning its prior value.
func (t *Tree) Delete(key uint64) ([]byte, error) {
	prior, err := t.Find(key)
	if err != nil {
		return nil, err
	}
	if err := t.db.Delete(encodeKey(key), pebble.NoSync); err != nil {
		return nil, err
	}
	return prior, nil
}

// Find looks up key and returns a copy of its value.
func (t *Tree) Find(key uint64) ([]byte, error) {
	v, closer, err := t.db.Get(encodeKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, vtree.ErrNotFound
		}
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, closer.Close()
}

// Ge returns the smallest stored key >= key, and its value, via a
// forward-seeking pebble iterator.
func (t *Tree) Ge(key uint64) (uint64, []byte, error) {
	iter, err := t.db.NewIter(&pebble.IterOptions{LowerBound: encodeKey(key)})
	if err != nil {
		return 0, nil, err
	}
	defer iter.Close()

	if !iter.SeekGE(encodeKey(key)) {
		return 0, nil, vtree.ErrNotFound
	}

	out := make([]byte, len(iter.Value()))
	copy(out, iter.Value())
	return decodeKey(iter.Key()), out, nil
}

// RangeQuery collects up to max key/value pairs with low <= key <= high,
// in ascending order, via a single bounded pebble iterator.
func (t *Tree) RangeQuery(low, high uint64, max int) []vtree.KV {
	if max <= 0 {
		return nil
	}

	opts := &pebble.IterOptions{LowerBound: encodeKey(low)}
	if high != ^uint64(0) {
		opts.UpperBound = encodeKey(high + 1)
	}

	iter, err := t.db.NewIter(opts)
	if err != nil {
		return nil
	}
	defer iter.Close()

	out := make([]vtree.KV, 0)
	for valid := iter.SeekGE(encodeKey(low)); valid && len(out) < max; valid = iter.Next() {
		k := decodeKey(iter.Key())
		if k > high {
			break
		}
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		out = append(out, vtree.KV{Key: k, Value: v})
	}
	return out
}

// Checkpoint takes a pebble directory-snapshot checkpoint into a fresh
// subdirectory of checkpointDir, standing in for pkg/bptree's
// copy-on-write checkpoint — pebble's own LSM compaction and WAL already
// provide durability, so this only needs to capture a point-in-time,
// restorable snapshot rather than rewrite any in-memory structure.
func (t *Tree) Checkpoint() error {
	epoch := atomic.AddUint64(&t.epoch, 1)
	dir := filepath.Join(t.checkpointDir, fmt.Sprintf("epoch-%d", epoch))
	return t.db.Checkpoint(dir)
}

// GetKeySize returns the configured maximum value width.
func (t *Tree) GetKeySize() int { return t.valueSize }
