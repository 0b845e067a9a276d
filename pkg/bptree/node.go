package bptree

import (
	"encoding/binary"

	"github.com/ssargent/blt/pkg/bufcache"
	"github.com/ssargent/blt/pkg/diskptr"
)

// Tunable node geometry. MaxKeys is fixed at 1636: an 8-byte header,
// MaxKeys 8-byte keys and MaxKeys+1 32-byte slots take 65480 bytes,
// which fits within the 64 KiB block.
const (
	MaxKeys   = 1636
	SplitKeys = MaxKeys / 2 // 818

	MaxPath      = 10
	MaxValueSize = 32

	headerSize    = 8
	keySize       = 8
	childSlotSize = MaxValueSize

	keysOffset     = headerSize
	keysBytes      = MaxKeys * keySize
	childrenOffset = keysOffset + keysBytes
)

// NodeType distinguishes a leaf (holds values) from an inner node (holds
// child disk pointers).
type NodeType uint8

const (
	Leaf NodeType = iota
	Inner
)

// NodeFlag bits live in the node header, distinct from the diskptr.Flag
// bits that tag the pointer referencing the node.
type NodeFlag uint8

const (
	// FlagCOW marks a node as subject to copy-on-write before the next
	// mutation within a checkpoint epoch.
	FlagCOW NodeFlag = 1 << iota
	// FlagFreshCOW marks a node as a checkpoint's freshly-made copy; it is
	// cleared once the checkpoint pass that created it completes.
	FlagFreshCOW
)

// Node is the in-memory handle for one on-disk B+tree block: a bound
// buffer, the owning tree, and the disk pointer that was resolved to
// reach it. Nodes never hold a pointer to another node — only disk
// pointers, resolved fresh through the buffer cache on every traversal
// step.
type Node struct {
	buf  *bufcache.Buffer
	tree *Tree
	ptr  diskptr.Ptr
}

func bindNode(tree *Tree, ptr diskptr.Ptr, buf *bufcache.Buffer) *Node {
	return &Node{buf: buf, tree: tree, ptr: ptr}
}

// Ptr returns the disk pointer this handle was resolved from.
func (n *Node) Ptr() diskptr.Ptr { return n.ptr }

// Len returns the number of keys currently stored.
func (n *Node) Len() int {
	return int(binary.LittleEndian.Uint32(n.buf.Data[0:4]))
}

// SetLen updates the stored key count.
func (n *Node) SetLen(l int) {
	binary.LittleEndian.PutUint32(n.buf.Data[0:4], uint32(l))
}

// Type returns whether the node is a leaf or inner node.
func (n *Node) Type() NodeType {
	return NodeType(n.buf.Data[4])
}

// SetType updates the node's type tag.
func (n *Node) SetType(t NodeType) {
	n.buf.Data[4] = byte(t)
}

// Flags returns the node header's flag bitset.
func (n *Node) Flags() NodeFlag {
	return NodeFlag(n.buf.Data[5])
}

// SetFlags overwrites the node header's flag bitset.
func (n *Node) SetFlags(f NodeFlag) {
	n.buf.Data[5] = byte(f)
}

func (n *Node) keyOffset(i int) int {
	return keysOffset + i*keySize
}

// Key returns the key stored at index i.
func (n *Node) Key(i int) uint64 {
	off := n.keyOffset(i)
	return binary.LittleEndian.Uint64(n.buf.Data[off : off+keySize])
}

// SetKey stores k at index i.
func (n *Node) SetKey(i int, k uint64) {
	off := n.keyOffset(i)
	binary.LittleEndian.PutUint64(n.buf.Data[off:off+keySize], k)
}

func (n *Node) slotOffset(i int) int {
	return childrenOffset + i*childSlotSize
}

// Child returns the disk pointer stored in child slot i (inner nodes
// only).
func (n *Node) Child(i int) diskptr.Ptr {
	off := n.slotOffset(i)
	return diskptr.Decode(n.buf.Data[off : off+diskptr.Size])
}

// SetChild stores a disk pointer in child slot i (inner nodes only).
func (n *Node) SetChild(i int, p diskptr.Ptr) {
	off := n.slotOffset(i)
	p.Encode(n.buf.Data[off : off+diskptr.Size])
}

// Value returns a copy of the value stored in slot i+1 for leaf key i,
// truncated to the tree's configured value size.
func (n *Node) Value(i int) []byte {
	off := n.slotOffset(i + 1)
	width := n.tree.valueSize
	out := make([]byte, width)
	copy(out, n.buf.Data[off:off+width])
	return out
}

// SetValue stores v (at most the tree's configured value size) in slot
// i+1 for leaf key i, zero-filling the rest of the slot's width.
func (n *Node) SetValue(i int, v []byte) {
	off := n.slotOffset(i + 1)
	width := n.tree.valueSize
	slot := n.buf.Data[off : off+width]
	copied := copy(slot, v)
	clear(slot[copied:])
}

// copyKeysFrom copies count keys starting at srcIdx in src to dstIdx in n.
func (n *Node) copyKeysFrom(src *Node, srcIdx, dstIdx, count int) {
	srcOff := src.keyOffset(srcIdx)
	dstOff := n.keyOffset(dstIdx)
	copy(n.buf.Data[dstOff:dstOff+count*keySize], src.buf.Data[srcOff:srcOff+count*keySize])
}

// copySlotsFrom copies count 32-byte slots (children or values) starting
// at srcIdx in src to dstIdx in n.
func (n *Node) copySlotsFrom(src *Node, srcIdx, dstIdx, count int) {
	srcOff := src.slotOffset(srcIdx)
	dstOff := n.slotOffset(dstIdx)
	copy(n.buf.Data[dstOff:dstOff+count*childSlotSize], src.buf.Data[srcOff:srcOff+count*childSlotSize])
}

// shiftKeysRight moves keys [from, from+count) to [from+1, from+1+count).
// Used when inserting a key at position from.
func (n *Node) shiftKeysRight(from, count int) {
	if count <= 0 {
		return
	}
	srcOff := n.keyOffset(from)
	dstOff := n.keyOffset(from + 1)
	copy(n.buf.Data[dstOff:dstOff+count*keySize], n.buf.Data[srcOff:srcOff+count*keySize])
}

// shiftKeysLeft moves keys [from, from+count) to [from-1, from-1+count).
// Used when removing the key at position from-1.
func (n *Node) shiftKeysLeft(from, count int) {
	if count <= 0 {
		return
	}
	srcOff := n.keyOffset(from)
	dstOff := n.keyOffset(from - 1)
	copy(n.buf.Data[dstOff:dstOff+count*keySize], n.buf.Data[srcOff:srcOff+count*keySize])
}

func (n *Node) shiftSlotsRight(from, count int) {
	if count <= 0 {
		return
	}
	srcOff := n.slotOffset(from)
	dstOff := n.slotOffset(from + 1)
	copy(n.buf.Data[dstOff:dstOff+count*childSlotSize], n.buf.Data[srcOff:srcOff+count*childSlotSize])
}

func (n *Node) shiftSlotsLeft(from, count int) {
	if count <= 0 {
		return
	}
	srcOff := n.slotOffset(from)
	dstOff := n.slotOffset(from - 1)
	copy(n.buf.Data[dstOff:dstOff+count*childSlotSize], n.buf.Data[srcOff:srcOff+count*childSlotSize])
}

// lowerBound returns the smallest index i such that Key(i) >= k, or Len()
// if no such index exists. This is the standard lower-bound binary
// search used for every descent and leaf probe.
func lowerBound(n *Node, k uint64) int {
	lo, hi := 0, n.Len()
	for lo < hi {
		mid := lo + (hi-lo)/2
		if n.Key(mid) >= k {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
