// Package diskptr defines the on-disk pointer type shared by the buffer
// cache and the B+tree engine. A disk pointer is the only inter-node
// linkage the engine ever holds: nodes never keep volatile in-memory
// pointers to other nodes, only a (offset, size, epoch, flags) tuple that
// must be resolved through the buffer cache to obtain a latched handle.
package diskptr

import "encoding/binary"

const (
	// PageSize is the unit of allocation, 4 KiB.
	PageSize = 4 * 1024

	// BlockSize is the size of a B+tree node on disk, 64 KiB (16 pages).
	BlockSize = 64 * 1024

	// Size is the encoded wire size of a Ptr: offset, size, epoch (u64 each)
	// plus a u16 flags field and 6 bytes of padding for 8-byte alignment.
	Size = 8 + 8 + 8 + 2 + 6
)

// Flag bits carried on a Ptr.
type Flag uint16

const (
	// COW marks a block as copy-on-write: it must be duplicated before the
	// next mutation that would otherwise rewrite it in place.
	COW Flag = 1 << iota
	// RDXLeaf tags a block belonging to the (out of scope) radix-tree
	// experiment; carried for wire-format parity with the original source.
	RDXLeaf
	// RDXInner is the radix-tree experiment's inner-node tag.
	RDXInner
	// Data marks a plain data block, as opposed to a tree node.
	Data
)

// Ptr is an on-disk pointer: a page offset, a page count, a checkpoint
// epoch, and a small flag bitset. Ptr is a plain value — copying it is
// always safe and is how nodes pass child/sibling references to each
// other without ever holding a live pointer to another node.
type Ptr struct {
	Offset uint64
	Size   uint64
	Epoch  uint64
	Flags  Flag
}

// Zero reports whether p is the unallocated pointer.
func (p Ptr) Zero() bool {
	return p == Ptr{}
}

// Has reports whether p carries the given flag.
func (p Ptr) Has(f Flag) bool {
	return p.Flags&f != 0
}

// ByteSize returns the number of bytes the pointer's block occupies.
func (p Ptr) ByteSize() uint64 {
	return p.Size * PageSize
}

// Encode writes the pointer's wire representation into dst, which must be
// at least Size bytes long.
func (p Ptr) Encode(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], p.Offset)
	binary.LittleEndian.PutUint64(dst[8:16], p.Size)
	binary.LittleEndian.PutUint64(dst[16:24], p.Epoch)
	binary.LittleEndian.PutUint16(dst[24:26], uint16(p.Flags))
}

// Decode reads a pointer from its wire representation in src, which must
// be at least Size bytes long.
func Decode(src []byte) Ptr {
	return Ptr{
		Offset: binary.LittleEndian.Uint64(src[0:8]),
		Size:   binary.LittleEndian.Uint64(src[8:16]),
		Epoch:  binary.LittleEndian.Uint64(src[16:24]),
		Flags:  Flag(binary.LittleEndian.Uint16(src[24:26])),
	}
}

// PagesFor returns the number of PageSize pages needed to hold byteLen
// bytes, rounding up.
func PagesFor(byteLen int) uint64 {
	return (uint64(byteLen) + PageSize - 1) / PageSize
}
