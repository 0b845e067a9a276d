package journal

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/blt/pkg/diskptr"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")

	w, err := NewWriter(path)
	require.NoError(t, err)

	entries := []Entry{
		{Root: diskptr.Ptr{Offset: 0, Size: 16, Epoch: 1}, Timestamp: 100},
		{Root: diskptr.Ptr{Offset: 16, Size: 16, Epoch: 2}, Timestamp: 200},
	}
	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.All()
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReader_EOFOnEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.log")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadNext()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecode_RejectsCorruptEntry(t *testing.T) {
	e := Encode(Entry{Root: diskptr.Ptr{Offset: 1, Size: 1}, Timestamp: 1})
	e[len(e)-1] ^= 0xFF

	_, err := Decode(e)
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestDecode_RejectsWrongSize(t *testing.T) {
	_, err := Decode(make([]byte, EntrySize-1))
	assert.ErrorIs(t, err, ErrCorruption)
}
