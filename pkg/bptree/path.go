package bptree

import (
	"github.com/ssargent/blt/pkg/bufcache"
	"github.com/ssargent/blt/pkg/diskptr"
)

// path tracks every node latched for the duration of one public tree
// operation, root to cursor. Latches are acquired top-down and released
// all at once, in reverse acquisition order, when the operation exits —
// never early, so a concurrent split or collapse elsewhere in the tree
// can never be observed half-applied by a reader working its way down.
//
// cursor indexes the node the operation is currently positioned at.
// Splitting or collapsing a node splices a new ancestor into nodes and
// advances or retreats cursor; it never removes an already-acquired
// latch from nodes until Release runs.
type path struct {
	tree   *Tree
	mode   bufcache.LatchMode
	nodes  []*Node
	cursor int
}

func newPath(t *Tree, mode bufcache.LatchMode) *path {
	return &path{tree: t, mode: mode, nodes: make([]*Node, 0, MaxPath)}
}

// push latches ptr in the path's mode and appends it as the new cursor.
func (p *path) push(ptr diskptr.Ptr) *Node {
	if len(p.nodes) >= MaxPath {
		panic(ErrTooDeep)
	}
	n := p.tree.loadNode(ptr, p.mode)
	p.nodes = append(p.nodes, n)
	p.cursor = len(p.nodes) - 1
	return n
}

// current returns the node the path is presently positioned at.
func (p *path) current() *Node {
	return p.nodes[p.cursor]
}

// parent returns the node above the cursor, or nil if the cursor is at
// the root.
func (p *path) parent() *Node {
	if p.cursor == 0 {
		return nil
	}
	return p.nodes[p.cursor-1]
}

// atRoot reports whether the cursor has no ancestor in the path.
func (p *path) atRoot() bool {
	return p.cursor == 0
}

// spliceParent inserts parent immediately above the cursor, so that a
// subsequent access to p.parent() resolves to it, and advances cursor to
// keep pointing at the same node as before the splice. Used when a
// node's split reaches the root and a fresh root must be spliced in
// above it.
func (p *path) spliceParent(parent *Node) {
	idx := p.cursor
	p.nodes = append(p.nodes, nil)
	copy(p.nodes[idx+1:], p.nodes[idx:len(p.nodes)-1])
	p.nodes[idx] = parent
	p.cursor = idx + 1
}

// backtrack moves the cursor up one level, used when a split or collapse
// cascades into the parent.
func (p *path) backtrack() {
	p.cursor--
}

// release unlatches every node ever pushed onto the path, in reverse
// acquisition order, regardless of where the cursor ended up.
func (p *path) release() {
	for i := len(p.nodes) - 1; i >= 0; i-- {
		p.tree.cache.Unlock(p.nodes[i].buf, p.mode)
	}
}
