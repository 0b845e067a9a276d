package journal

import (
	"bufio"
	"io"
	"os"
)

// Reader replays a journal file sequentially, one entry at a time.
type Reader struct {
	file *os.File
	r    *bufio.Reader
}

// NewReader opens the journal file at path for sequential reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, r: bufio.NewReader(f)}, nil
}

// ReadNext returns the next entry, or io.EOF once the file is
// exhausted.
func (r *Reader) ReadNext() (Entry, error) {
	buf := make([]byte, EntrySize)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Entry{}, io.EOF
		}
		return Entry{}, err
	}
	return Decode(buf)
}

// All reads every remaining entry in the file.
func (r *Reader) All() ([]Entry, error) {
	var out []Entry
	for {
		e, err := r.ReadNext()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
