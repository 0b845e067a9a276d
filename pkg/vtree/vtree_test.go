package vtree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/blt/pkg/bptree"
	"github.com/ssargent/blt/pkg/bufcache"
)

func newAdapter(t *testing.T) *BPTree {
	t.Helper()
	cache := bufcache.New(bufcache.Options{})
	tree, err := bptree.Init(cache, 32)
	require.NoError(t, err)
	return NewBPTree(tree)
}

func valueFor(k uint64) []byte {
	b := make([]byte, 32)
	binary.LittleEndian.PutUint64(b, k)
	return b
}

func TestBPTree_SatisfiesTreeInterface(t *testing.T) {
	var _ Tree = (*BPTree)(nil)
	var _ Tree = (*WAL)(nil)
}

func TestBPTree_InsertFindDelete(t *testing.T) {
	bt := newAdapter(t)

	require.NoError(t, bt.Insert(1, valueFor(1)))
	got, err := bt.Find(1)
	require.NoError(t, err)
	assert.Equal(t, valueFor(1), got)

	_, err = bt.Find(2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = bt.Delete(1)
	require.NoError(t, err)
	_, err = bt.Find(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWAL_InsertIsInvisibleUntilFlush(t *testing.T) {
	bt := newAdapter(t)
	w := NewWAL(bt, 4, FlushPointInserts)

	require.NoError(t, w.Insert(5, valueFor(5)))
	_, err := w.Find(5)
	assert.ErrorIs(t, err, ErrNotFound, "unflushed WAL entries must not be visible through Find")

	require.NoError(t, w.Flush())
	got, err := w.Find(5)
	require.NoError(t, err)
	assert.Equal(t, valueFor(5), got)
}

func TestWAL_FlushesAutomaticallyWhenFull(t *testing.T) {
	bt := newAdapter(t)
	w := NewWAL(bt, 2, FlushPointInserts)

	require.NoError(t, w.Insert(1, valueFor(1)))
	require.NoError(t, w.Insert(2, valueFor(2)))
	assert.Equal(t, 2, w.Len())

	require.NoError(t, w.Insert(3, valueFor(3)))
	assert.Equal(t, 1, w.Len(), "inserting past capacity flushes the first two entries")

	got, err := bt.Find(1)
	require.NoError(t, err)
	assert.Equal(t, valueFor(1), got)
}

func TestWAL_OverwriteBeforeFlush(t *testing.T) {
	bt := newAdapter(t)
	w := NewWAL(bt, 8, FlushPointInserts)

	require.NoError(t, w.Insert(1, valueFor(1)))
	require.NoError(t, w.Insert(1, valueFor(99)))
	assert.Equal(t, 1, w.Len())

	require.NoError(t, w.Flush())
	got, err := bt.Find(1)
	require.NoError(t, err)
	assert.Equal(t, valueFor(99), got)
}

func TestWAL_BulkFlushMode(t *testing.T) {
	bt := newAdapter(t)
	w := NewWAL(bt, 4, FlushBulk)

	for k := uint64(1); k <= 10000; k++ {
		require.NoError(t, w.Insert(k, valueFor(k)))
	}

	require.NoError(t, w.Checkpoint())
	assert.Equal(t, 0, w.Len())

	for k := uint64(1); k <= 10000; k++ {
		got, err := bt.Find(k)
		require.NoError(t, err)
		assert.Equal(t, valueFor(k), got)
	}
}

func TestWAL_CheckpointFlushesFirst(t *testing.T) {
	bt := newAdapter(t)
	w := NewWAL(bt, 64, FlushPointInserts)
	require.NoError(t, w.Insert(7, valueFor(7)))

	require.NoError(t, w.Checkpoint())

	got, err := bt.Find(7)
	require.NoError(t, err)
	assert.Equal(t, valueFor(7), got)
}

func TestBPTree_GetKeySize(t *testing.T) {
	bt := newAdapter(t)
	assert.Equal(t, 32, bt.GetKeySize())
}
