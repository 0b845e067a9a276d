// Package bptree implements the disk-pointer, copy-on-write B+tree
// engine: every node is a fixed 64 KiB block reached through
// pkg/bufcache, inter-node linkage is exclusively via pkg/diskptr
// pointers, and a tree never mutates a node that the last checkpoint
// has not yet copied away from.
package bptree

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ssargent/blt/pkg/bufcache"
	"github.com/ssargent/blt/pkg/diskptr"
	"github.com/ssargent/blt/pkg/journal"
)

// KV is a single key/value pair, used by BulkInsert and RangeQuery.
type KV struct {
	Key   uint64
	Value []byte
}

// Tree is one B+tree instance: a buffer cache, a configured value
// width, and the single disk pointer to its current root. The root
// pointer is the tree's only mutable piece of state outside the buffer
// cache itself, and is guarded by rootMu so concurrent traversals can
// read it safely while a split or checkpoint replaces it.
type Tree struct {
	cache     *bufcache.Cache
	valueSize int

	epoch uint64 // atomic; current checkpoint generation

	rootMu sync.RWMutex
	root   diskptr.Ptr

	journal *journal.Writer
}

// SetJournal attaches an append-only checkpoint journal: every
// subsequent Checkpoint call records its new root there after
// completing. A tree with no journal attached checkpoints exactly the
// same way; the journal is a pure observability side effect, never
// consulted to reconstruct tree state.
func (t *Tree) SetJournal(w *journal.Writer) {
	t.journal = w
}

// allocate hands out a fresh block pointer stamped with the tree's
// current checkpoint generation.
func (t *Tree) allocate() diskptr.Ptr {
	p := t.cache.Allocator.Allocate(diskptr.BlockSize)
	p.Epoch = atomic.LoadUint64(&t.epoch)
	return p
}

// Init allocates a fresh empty root leaf and returns a ready-to-use
// tree. valueSize bounds every value ever stored and must fit within
// MaxValueSize.
func Init(cache *bufcache.Cache, valueSize int) (*Tree, error) {
	if valueSize <= 0 || valueSize > MaxValueSize {
		return nil, ErrCapacityExceeded
	}

	t := &Tree{cache: cache, valueSize: valueSize}

	rootPtr := t.allocate()
	buf := cache.Get(rootPtr, bufcache.Exclusive)
	node := bindNode(t, rootPtr, buf)
	node.SetType(Leaf)
	node.SetLen(0)
	cache.Dirty(buf)
	cache.Unlock(buf, bufcache.Exclusive)

	t.root = rootPtr
	return t, nil
}

// Open binds a tree descriptor to a pre-existing root, typically one
// returned by a prior Checkpoint against the same cache. It enforces
// invariant 5 (§3.2.5 of the tree layout: "the root's disk pointer
// stored in the tree descriptor identifies a currently-latchable
// block") by checking root against the cache's own allocator rather
// than just latching it: Cache.Get happily fabricates a zeroed buffer
// for any offset at all, allocated or not, so latching alone can never
// tell a real block from garbage. A zero pointer or one past the
// allocator's high-water mark fails here rather than surfacing as a
// confusing ErrNotFound from the first traversal.
func Open(cache *bufcache.Cache, valueSize int, root diskptr.Ptr) (*Tree, error) {
	if valueSize <= 0 || valueSize > MaxValueSize {
		return nil, ErrCapacityExceeded
	}
	if root.Zero() || !cache.Allocator.Allocated(root) {
		return nil, ErrNotFound
	}

	t := &Tree{cache: cache, valueSize: valueSize, epoch: root.Epoch}
	t.root = root
	return t, nil
}

// ValueSize returns the configured maximum value width.
func (t *Tree) ValueSize() int { return t.valueSize }

// RootPtr returns the tree's current root pointer.
func (t *Tree) RootPtr() diskptr.Ptr {
	t.rootMu.RLock()
	defer t.rootMu.RUnlock()
	return t.root
}

func (t *Tree) setRoot(p diskptr.Ptr) {
	t.root = p
}

func (t *Tree) loadNode(ptr diskptr.Ptr, mode bufcache.LatchMode) *Node {
	return bindNode(t, ptr, t.cache.Get(ptr, mode))
}

// traverse descends from the root to the leaf that would hold k,
// latching every node along the way in the path's mode. The descent
// rule is a plain lower-bound search: child i holds every key <=
// Key(i), and the last child holds everything greater than the final
// key.
func (t *Tree) traverse(p *path, k uint64) {
	t.rootMu.RLock()
	rootPtr := t.root
	t.rootMu.RUnlock()

	cur := p.push(rootPtr)
	for cur.Type() == Inner {
		cidx := lowerBound(cur, k)
		cur = p.push(cur.Child(cidx))
	}
}

// Find looks up k and returns a copy of its value.
func (t *Tree) Find(k uint64) ([]byte, error) {
	p := newPath(t, bufcache.Shared)
	defer p.release()

	t.traverse(p, k)
	leaf := p.current()
	idx := lowerBound(leaf, k)
	if idx >= leaf.Len() || leaf.Key(idx) != k {
		return nil, ErrNotFound
	}
	return leaf.Value(idx), nil
}

// Ge returns the smallest stored key >= k, and its value.
func (t *Tree) Ge(k uint64) (uint64, []byte, error) {
	p := newPath(t, bufcache.Shared)
	defer p.release()

	t.traverse(p, k)
	leaf := p.current()
	idx := lowerBound(leaf, k)
	if idx >= leaf.Len() {
		return 0, nil, ErrNotFound
	}
	return leaf.Key(idx), leaf.Value(idx), nil
}

// Insert stores v under k, overwriting any existing value. A leaf that
// fills to MaxKeys is split at once, and the split cascades upward into
// any ancestor it fills in turn.
func (t *Tree) Insert(k uint64, v []byte) error {
	if len(v) > t.valueSize {
		return ErrCapacityExceeded
	}

	p := newPath(t, bufcache.Exclusive)
	defer p.release()

	t.traverse(p, k)
	leaf := p.current()
	idx := lowerBound(leaf, k)

	if idx < leaf.Len() && leaf.Key(idx) == k {
		leaf.SetValue(idx, v)
		t.cache.Dirty(leaf.buf)
		return nil
	}

	count := leaf.Len() - idx
	leaf.shiftKeysRight(idx, count)
	leaf.shiftSlotsRight(idx+1, count)
	leaf.SetKey(idx, k)
	leaf.SetValue(idx, v)
	leaf.SetLen(leaf.Len() + 1)
	t.cache.Dirty(leaf.buf)

	if leaf.Len() == MaxKeys {
		t.splitUp(p)
	}
	return nil
}

// BulkInsert loads a pre-sorted batch of pairs via repeated point
// insertion. The tree's layout does not reward a fused bulk-load path:
// every insert is already a single root-to-leaf traversal regardless of
// batch size.
func (t *Tree) BulkInsert(items []KV) error {
	for _, it := range items {
		if err := t.Insert(it.Key, it.Value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes k, returning its prior value, and collapses any leaf
// or inner node left empty by the removal.
func (t *Tree) Delete(k uint64) ([]byte, error) {
	p := newPath(t, bufcache.Exclusive)
	defer p.release()

	t.traverse(p, k)
	leaf := p.current()
	idx := lowerBound(leaf, k)
	if idx >= leaf.Len() || leaf.Key(idx) != k {
		return nil, ErrNotFound
	}

	out := leaf.Value(idx)
	count := leaf.Len() - idx - 1
	leaf.shiftKeysLeft(idx+1, count)
	leaf.shiftSlotsLeft(idx+2, count)
	leaf.SetLen(leaf.Len() - 1)
	t.cache.Dirty(leaf.buf)

	if leaf.Len() == 0 {
		t.collapseUp(p)
	}
	return out, nil
}

// RangeQuery collects up to max key/value pairs with low <= key <= high,
// in ascending order. It walks only the subtrees whose separator keys
// overlap [low, high], latching a node only for the duration of its own
// visit and never more than MaxPath of them at once, since recursion
// depth tracks tree height.
func (t *Tree) RangeQuery(low, high uint64, max int) []KV {
	if max <= 0 {
		return nil
	}

	t.rootMu.RLock()
	rootPtr := t.root
	t.rootMu.RUnlock()

	out := make([]KV, 0)
	root := t.loadNode(rootPtr, bufcache.Shared)
	t.rangeWalk(root, low, high, max, &out)
	t.cache.Unlock(root.buf, bufcache.Shared)
	return out
}

func (t *Tree) rangeWalk(n *Node, low, high uint64, max int, out *[]KV) {
	if len(*out) >= max {
		return
	}

	if n.Type() == Leaf {
		for i := 0; i < n.Len(); i++ {
			k := n.Key(i)
			if k < low {
				continue
			}
			if k > high {
				return
			}
			*out = append(*out, KV{Key: k, Value: n.Value(i)})
			if len(*out) >= max {
				return
			}
		}
		return
	}

	length := n.Len()
	for i := 0; i <= length; i++ {
		var lo uint64
		if i > 0 {
			lo = n.Key(i-1) + 1
		}
		hi := ^uint64(0)
		if i < length {
			hi = n.Key(i)
		}
		if hi < low {
			continue
		}
		if lo > high {
			return
		}

		child := t.loadNode(n.Child(i), bufcache.Shared)
		t.rangeWalk(child, low, high, max, out)
		t.cache.Unlock(child.buf, bufcache.Shared)
		if len(*out) >= max {
			return
		}
	}
}

// Checkpoint copies every node reachable from a modification since the
// last checkpoint into a fresh block, rewrites ancestor child pointers
// to match, and returns the new root. It holds the tree's root lock for
// its entire duration: no traversal may start against a root that is
// being rewritten underneath it.
func (t *Tree) Checkpoint() diskptr.Ptr {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()

	atomic.AddUint64(&t.epoch, 1)

	var fresh []*bufcache.Buffer
	newRoot := t.checkpointWalk(t.root, &fresh)
	t.root = newRoot

	for _, b := range fresh {
		b.Data[5] &^= byte(FlagFreshCOW)
	}
	t.cache.ClearDirty()

	if t.journal != nil {
		// Best-effort: the journal is an audit trail, not a correctness
		// dependency, so a write failure here must not fail the
		// checkpoint that already committed the new root in memory.
		_ = t.journal.Append(journal.Entry{Root: newRoot, Timestamp: time.Now().UnixNano()})
	}
	return newRoot
}

// childPtrUpdate records that child slot idx must point at ptr in
// whatever buffer checkpointWalk ultimately returns — collected rather
// than applied immediately, since the node doing the recursing may
// turn out to be an old snapshot block that must never be mutated in
// place.
type childPtrUpdate struct {
	idx int
	ptr diskptr.Ptr
}

// checkpointWalk returns the disk pointer nodePtr should be replaced
// with: itself, if neither nodePtr nor anything beneath it changed
// since the last checkpoint, or a freshly allocated copy otherwise. A
// child's pointer changing is itself a change, so a dirty leaf forces
// every ancestor up to the root to be copied too.
//
// Every child-pointer rewrite this produces is applied to the fresh
// copy, never to nodePtr's own buffer: §4.9 requires that a node is
// never rewritten in place during a checkpoint cycle, since a
// concurrent reader may still be holding nodePtr as part of the prior
// snapshot's root.
func (t *Tree) checkpointWalk(nodePtr diskptr.Ptr, fresh *[]*bufcache.Buffer) diskptr.Ptr {
	node := t.loadNode(nodePtr, bufcache.Exclusive)
	changed := t.cache.IsDirty(node.buf)

	var updates []childPtrUpdate
	if node.Type() == Inner {
		length := node.Len()
		for i := 0; i <= length; i++ {
			childPtr := node.Child(i)
			newChildPtr := t.checkpointWalk(childPtr, fresh)
			if newChildPtr != childPtr {
				updates = append(updates, childPtrUpdate{idx: i, ptr: newChildPtr})
				changed = true
			}
		}
	}

	if !changed {
		t.cache.Unlock(node.buf, bufcache.Exclusive)
		return nodePtr
	}

	newPtr := t.allocate()
	newBuf := t.cache.Get(newPtr, bufcache.Exclusive)
	copy(newBuf.Data, node.buf.Data)
	newBuf.Data[5] |= byte(FlagFreshCOW)

	newNode := bindNode(t, newPtr, newBuf)
	for _, u := range updates {
		newNode.SetChild(u.idx, u.ptr)
	}

	*fresh = append(*fresh, newBuf)
	t.cache.Unlock(newBuf, bufcache.Exclusive)

	t.cache.Unlock(node.buf, bufcache.Exclusive)
	return newPtr
}

// splitUp splits p's current node, which has just overflowed to
// MaxKeys, and cascades into its ancestors for as long as the inserted
// separator key overflows them in turn.
func (t *Tree) splitUp(p *path) {
	for {
		n := p.current()
		if n.Len() < MaxKeys {
			return
		}

		pivot, rightPtr := t.splitNode(n)
		t.cache.Dirty(n.buf)

		if p.atRoot() {
			t.spliceNewRoot(p, n, pivot, rightPtr)
			return
		}

		parent := p.parent()
		idx := childIndexIn(parent, n.Ptr())
		insertInner(parent, idx, pivot, rightPtr)
		t.cache.Dirty(parent.buf)
		p.backtrack()
	}
}

// splitNode moves the top half of n's keys (and children or values)
// into a freshly allocated right sibling, returning the separator key
// promoted to n's parent and the sibling's disk pointer. The same copy
// range applies whether n is a leaf or an inner node: SplitKeys+1
// 32-byte slots starting at index SplitKeys, which for a leaf lands the
// value belonging to the retained pivot key harmlessly in the sibling's
// otherwise-unused slot 0, and for an inner node carries across the
// one extra child that a promoted key leaves on the right.
func (t *Tree) splitNode(n *Node) (uint64, diskptr.Ptr) {
	rightPtr := t.allocate()
	rightBuf := t.cache.Get(rightPtr, bufcache.Exclusive)
	right := bindNode(t, rightPtr, rightBuf)

	right.SetType(n.Type())
	right.SetLen(SplitKeys)
	right.copyKeysFrom(n, SplitKeys, 0, SplitKeys)
	right.copySlotsFrom(n, SplitKeys, 0, SplitKeys+1)

	pivot := n.Key(SplitKeys - 1)
	if n.Type() == Leaf {
		n.SetLen(SplitKeys)
	} else {
		n.SetLen(SplitKeys - 1)
	}

	t.cache.Dirty(rightBuf)
	t.cache.Unlock(rightBuf, bufcache.Exclusive)
	return pivot, rightPtr
}

// spliceNewRoot builds a fresh two-child root above n, the node that
// just split at the top of the path, and splices it into the path so
// it stays latched for the rest of the operation.
func (t *Tree) spliceNewRoot(p *path, n *Node, pivot uint64, rightPtr diskptr.Ptr) {
	newRootPtr := t.allocate()
	newRootBuf := t.cache.Get(newRootPtr, bufcache.Exclusive)
	newRoot := bindNode(t, newRootPtr, newRootBuf)

	newRoot.SetType(Inner)
	newRoot.SetLen(1)
	newRoot.SetKey(0, pivot)
	newRoot.SetChild(0, n.Ptr())
	newRoot.SetChild(1, rightPtr)
	t.cache.Dirty(newRootBuf)

	t.setRoot(newRootPtr)
	p.spliceParent(newRoot)
}

// insertInner inserts a promoted separator key at position idx in
// parent, with child landing at slot idx+1, the slot immediately to
// the right of the separator.
func insertInner(parent *Node, idx int, key uint64, child diskptr.Ptr) {
	count := parent.Len() - idx
	parent.shiftKeysRight(idx, count)
	parent.shiftSlotsRight(idx+1, count)
	parent.SetKey(idx, key)
	parent.SetChild(idx+1, child)
	parent.SetLen(parent.Len() + 1)
}

// childIndexIn finds the slot in parent holding ptr. Nodes carry no
// parent back-pointer, so every split or collapse that needs to touch
// an ancestor's child slot first has to locate it this way; the
// allocator's offsets are never reused, so comparing on Offset alone is
// sufficient.
func childIndexIn(parent *Node, ptr diskptr.Ptr) int {
	for i := 0; i <= parent.Len(); i++ {
		if parent.Child(i).Offset == ptr.Offset {
			return i
		}
	}
	panic("bptree: child not found in parent")
}

// collapseUp removes p's current node, which has just emptied, from its
// parent's child slots, cascading into the parent if that removal
// empties it too. An empty node that reaches the root is simply
// retyped to an empty leaf rather than removed, since the root's disk
// pointer is the tree's only fixed handle.
func (t *Tree) collapseUp(p *path) {
	for {
		n := p.current()
		if n.Len() > 0 {
			return
		}

		if p.atRoot() {
			n.SetType(Leaf)
			t.cache.Dirty(n.buf)
			return
		}

		parent := p.parent()
		idx := childIndexIn(parent, n.Ptr())
		removeFromParent(parent, idx)
		t.cache.Dirty(parent.buf)
		p.backtrack()
	}
}

// removeFromParent drops child slot idx from parent along with its
// associated separator key (or, if idx is the last slot, the key that
// used to separate it from its left neighbor), shifting everything
// after it down by one.
func removeFromParent(parent *Node, idx int) {
	length := parent.Len()
	parent.shiftKeysLeft(idx+1, length-1-idx)
	parent.shiftSlotsLeft(idx+1, length-idx)
	parent.SetLen(length - 1)
}
