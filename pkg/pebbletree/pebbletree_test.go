package pebbletree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/blt/pkg/vtree"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	dir := t.TempDir()
	tree, err := Open(filepath.Join(dir, "db"), 32, filepath.Join(dir, "checkpoints"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

func valueFor(k uint64) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(k + uint64(i))
	}
	return b
}

func TestPebbleTree_SatisfiesVTreeInterface(t *testing.T) {
	var _ vtree.Tree = (*Tree)(nil)
}

func TestPebbleTree_InsertFindDelete(t *testing.T) {
	tree := newTestTree(t)

	require.NoError(t, tree.Insert(1, valueFor(1)))
	got, err := tree.Find(1)
	require.NoError(t, err)
	assert.Equal(t, valueFor(1), got)

	_, err = tree.Find(2)
	assert.ErrorIs(t, err, vtree.ErrNotFound)

	prior, err := tree.Delete(1)
	require.NoError(t, err)
	assert.Equal(t, valueFor(1), prior)

	_, err = tree.Find(1)
	assert.ErrorIs(t, err, vtree.ErrNotFound)
}

func TestPebbleTree_RejectsOversizedValue(t *testing.T) {
	tree := newTestTree(t)
	err := tree.Insert(1, make([]byte, 64))
	assert.ErrorIs(t, err, vtree.ErrCapacityExceeded)
}

func TestPebbleTree_Ge(t *testing.T) {
	tree := newTestTree(t)
	for _, k := range []uint64{10, 20, 30} {
		require.NoError(t, tree.Insert(k, valueFor(k)))
	}

	k, v, err := tree.Ge(15)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), k)
	assert.Equal(t, valueFor(20), v)

	_, _, err = tree.Ge(31)
	assert.ErrorIs(t, err, vtree.ErrNotFound)
}

func TestPebbleTree_BulkInsertAndRangeQuery(t *testing.T) {
	tree := newTestTree(t)

	items := make([]vtree.KV, 0, 1000)
	for k := uint64(0); k < 1000; k++ {
		items = append(items, vtree.KV{Key: k, Value: valueFor(k)})
	}
	require.NoError(t, tree.BulkInsert(items))

	got := tree.RangeQuery(100, 199, 1000)
	require.Len(t, got, 100)
	for i, kv := range got {
		assert.Equal(t, uint64(100+i), kv.Key)
	}
}

func TestPebbleTree_Checkpoint(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert(1, valueFor(1)))
	require.NoError(t, tree.Checkpoint())
	require.NoError(t, tree.Checkpoint())
}

func TestPebbleTree_GetKeySize(t *testing.T) {
	tree := newTestTree(t)
	assert.Equal(t, 32, tree.GetKeySize())
}
