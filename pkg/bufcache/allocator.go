package bufcache

import (
	"sync/atomic"

	"github.com/ssargent/blt/pkg/diskptr"
)

// Allocator hands out monotonically increasing page offsets. It never
// frees: copy-on-write semantics mean an old block is simply abandoned
// once a checkpoint rewrites its parent's pointer, never reused for the
// life of the process.
type Allocator struct {
	nextPage uint64 // atomic
}

// Allocate returns a fresh disk pointer large enough to hold byteLen
// bytes, rounded up to a whole number of pages.
func (a *Allocator) Allocate(byteLen int) diskptr.Ptr {
	pages := diskptr.PagesFor(byteLen)
	offset := atomic.AddUint64(&a.nextPage, pages) - pages
	return diskptr.Ptr{Offset: offset, Size: pages}
}

// Reset returns the allocator to its initial state. Used between test
// phases; never called while any buffer from a prior generation is still
// referenced.
func (a *Allocator) Reset() {
	atomic.StoreUint64(&a.nextPage, 0)
}

// Allocated reports whether ptr falls entirely within pages this
// allocator has already handed out. The cache itself will happily
// materialize a zeroed buffer for any offset (it simulates a disk that
// always answers), so this is the only way to tell a real block from
// one nobody ever allocated.
func (a *Allocator) Allocated(ptr diskptr.Ptr) bool {
	return ptr.Offset+ptr.Size <= atomic.LoadUint64(&a.nextPage)
}
