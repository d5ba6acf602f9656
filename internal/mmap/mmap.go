// Package mmap maps stored bit vector blobs into memory read-only.
//
// Unix hosts use mmap(2); other platforms fall back to reading the file into
// a heap buffer behind the same API.
package mmap

import (
	"errors"
	"os"
	"sync/atomic"
)

// ErrInvalidSize is returned for files whose size cannot be mapped.
var ErrInvalidSize = errors.New("mmap: invalid file size")

// Mapping is a read-only view of a file's contents.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path into memory.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Map(f)
}

// Map maps the contents of f. The mapping outlives f, which the caller may
// close once Map returns.
func Map(f *os.File) (*Mapping, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if size < 0 || int64(int(size)) != size {
		return nil, ErrInvalidSize
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// FromBytes wraps a heap buffer in a Mapping, for files that cannot be
// mapped directly.
func FromBytes(data []byte) *Mapping {
	return &Mapping{data: data}
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Len returns the mapped length.
func (m *Mapping) Len() int {
	return len(m.Bytes())
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	data := m.data
	m.data = nil
	if data == nil || m.unmap == nil {
		return nil
	}
	return m.unmap(data)
}
