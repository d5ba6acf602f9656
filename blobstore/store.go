package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// BlobStore stores named, immutable blobs.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Close() error
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs whose content is already in memory.
type Mappable interface {
	// Bytes returns the underlying byte slice, valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll reads the whole blob into a newly allocated slice.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	size := b.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, fmt.Errorf("blobstore: invalid blob size %d", size)
	}
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := b.ReadAt(ctx, out, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == size) {
		return nil, err
	}
	return out[:n], nil
}
