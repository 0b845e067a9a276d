// Package journal records an append-only, CRC32-checked audit trail of
// checkpoint events: which epoch ran, against which root, and when.
// It is deliberately not a recovery log — nothing in this package ever
// replays an entry back into tree state; it exists purely so an
// operator or test harness can see when checkpoints ran.
package journal

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/ssargent/blt/pkg/diskptr"
)

// ErrCorruption is returned when a journal entry's CRC32 does not match
// its contents.
var ErrCorruption = errors.New("journal: checksum mismatch")

// EntrySize is the fixed on-disk size of one journal entry:
// CRC32(4) + disk pointer (diskptr.Size) + timestamp(8).
const EntrySize = 4 + diskptr.Size + 8

// Entry is one checkpoint event: the root the tree adopted and when.
type Entry struct {
	Root      diskptr.Ptr
	Timestamp int64 // UnixNano
}

// Encode serializes e into a fixed EntrySize-byte record with a leading
// CRC32 over everything that follows it.
func Encode(e Entry) []byte {
	buf := make([]byte, EntrySize)
	e.Root.Encode(buf[4 : 4+diskptr.Size])
	binary.LittleEndian.PutUint64(buf[4+diskptr.Size:], uint64(e.Timestamp))
	binary.LittleEndian.PutUint32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

// Decode parses a fixed EntrySize-byte record, validating its CRC32.
func Decode(buf []byte) (Entry, error) {
	if len(buf) != EntrySize {
		return Entry{}, ErrCorruption
	}
	want := binary.LittleEndian.Uint32(buf[0:4])
	if crc32.ChecksumIEEE(buf[4:]) != want {
		return Entry{}, ErrCorruption
	}

	return Entry{
		Root:      diskptr.Decode(buf[4 : 4+diskptr.Size]),
		Timestamp: int64(binary.LittleEndian.Uint64(buf[4+diskptr.Size:])),
	}, nil
}
