package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte{0x08, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xAA}
	require.NoError(t, store.Put(ctx, "vectors/a", data))
	require.NoError(t, store.Put(ctx, "vectors/b", data))
	require.NoError(t, store.Put(ctx, "other/c", data))

	// Mutating the caller's buffer must not leak into the store.
	data[8] = 0xFF

	blob, err := store.Open(ctx, "vectors/a")
	require.NoError(t, err)
	defer blob.Close()

	got, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), got[8])
	assert.Equal(t, int64(9), blob.Size())

	names, err := store.List(ctx, "vectors/")
	require.NoError(t, err)
	assert.Equal(t, []string{"vectors/a", "vectors/b"}, names)

	require.NoError(t, store.Delete(ctx, "vectors/a"))
	require.NoError(t, store.Delete(ctx, "vectors/a"))
	_, err = store.Open(ctx, "vectors/a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.Put(ctx, "a", nil), context.Canceled)
	_, err := store.Open(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBlob_ReadAt(t *testing.T) {
	ctx := context.Background()
	b := &memoryBlob{data: []byte("hello")}

	buf := make([]byte, 3)
	n, err := b.ReadAt(ctx, buf, 1)
	require.NoError(t, err)
	assert.Equal(t, "ell", string(buf[:n]))

	n, err = b.ReadAt(ctx, buf, 3)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = b.ReadAt(ctx, buf, 10)
	assert.ErrorIs(t, err, io.EOF)
}
