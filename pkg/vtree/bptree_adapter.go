package vtree

import (
	"errors"

	"github.com/ssargent/blt/pkg/bptree"
)

// BPTree adapts *bptree.Tree to the Tree interface: it translates
// bptree's own KV type and ErrNotFound sentinel into vtree's, and turns
// bptree.Checkpoint's infallible disk-pointer return into the error-
// returning shape every backend shares (pebbletree's checkpoint can
// fail on the underlying filesystem, so the interface has to allow for
// it even though bptree's own can't).
type BPTree struct {
	tree *bptree.Tree
}

// NewBPTree wraps an initialized bptree.Tree for use behind the Tree
// façade.
func NewBPTree(t *bptree.Tree) *BPTree {
	return &BPTree{tree: t}
}

// Unwrap returns the underlying bptree.Tree, for callers that need
// bptree-specific operations the façade doesn't expose (such as
// SetJournal).
func (b *BPTree) Unwrap() *bptree.Tree { return b.tree }

func (b *BPTree) Insert(key uint64, value []byte) error {
	return translateErr(b.tree.Insert(key, value))
}

func (b *BPTree) BulkInsert(items []KV) error {
	converted := make([]bptree.KV, len(items))
	for i, it := range items {
		converted[i] = bptree.KV{Key: it.Key, Value: it.Value}
	}
	return translateErr(b.tree.BulkInsert(converted))
}

func (b *BPTree) Delete(key uint64) ([]byte, error) {
	v, err := b.tree.Delete(key)
	return v, translateErr(err)
}

func (b *BPTree) Find(key uint64) ([]byte, error) {
	v, err := b.tree.Find(key)
	return v, translateErr(err)
}

func (b *BPTree) Ge(key uint64) (uint64, []byte, error) {
	k, v, err := b.tree.Ge(key)
	return k, v, translateErr(err)
}

func (b *BPTree) RangeQuery(low, high uint64, max int) []KV {
	raw := b.tree.RangeQuery(low, high, max)
	out := make([]KV, len(raw))
	for i, kv := range raw {
		out[i] = KV{Key: kv.Key, Value: kv.Value}
	}
	return out
}

func (b *BPTree) Checkpoint() error {
	b.tree.Checkpoint()
	return nil
}

func (b *BPTree) GetKeySize() int { return b.tree.ValueSize() }

func translateErr(err error) error {
	switch {
	case errors.Is(err, bptree.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, bptree.ErrCapacityExceeded):
		return ErrCapacityExceeded
	default:
		return err
	}
}
