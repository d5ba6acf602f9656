package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/bitvec/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeS3(), "bucket", "vectors")

	require.NoError(t, s.Put(ctx, "a/one", []byte{1, 2, 3, 4}))
	require.NoError(t, s.Put(ctx, "a/two", []byte{5}))
	require.NoError(t, s.Put(ctx, "b", []byte{6}))

	b, err := s.Open(ctx, "a/one")
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, int64(4), b.Size())

	data, err := blobstore.ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	names, err := s.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one", "a/two"}, names)

	require.NoError(t, s.Delete(ctx, "a/one"))
	_, err = s.Open(ctx, "a/one")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	// Deleting a missing blob is not an error.
	require.NoError(t, s.Delete(ctx, "a/one"))
}

func TestStore_ListStaysUnderRoot(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	mine := NewStore(client, "bucket", "vectors")
	other := NewStore(client, "bucket", "vectors2")

	require.NoError(t, mine.Put(ctx, "a", []byte{1}))
	require.NoError(t, other.Put(ctx, "x", []byte{2}))

	names, err := mine.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	names, err = other.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)

	// Trailing slashes on the root are equivalent.
	names, err = NewStore(client, "bucket", "vectors/").List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	names, err = NewStore(client, "bucket", "").List(ctx, "vectors")
	require.NoError(t, err)
	assert.Equal(t, []string{"vectors/a", "vectors2/x"}, names)
}

func TestBlob_ReadAt(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeS3(), "bucket", "")
	require.NoError(t, s.Put(ctx, "x", []byte{0, 1, 2, 3, 4, 5}))

	b, err := s.Open(ctx, "x")
	require.NoError(t, err)

	p := make([]byte, 3)
	n, err := b.ReadAt(ctx, p, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{2, 3, 4}, p)

	p = make([]byte, 4)
	n, err = b.ReadAt(ctx, p, 4)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{4, 5}, p[:n])

	_, err = b.ReadAt(ctx, p, 6)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStore_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		client := &mockS3{}
		client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &types.NotFound{})

		_, err := NewStore(client, "bucket", "").Open(ctx, "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
		client.AssertExpectations(t)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		client := &mockS3{}
		client.On("HeadObject", mock.Anything, mock.Anything).Return(nil, boom)
		client.On("ListObjectsV2", mock.Anything, mock.Anything).Return(nil, boom)

		s := NewStore(client, "bucket", "")
		_, err := s.Open(ctx, "x")
		assert.ErrorIs(t, err, boom)
		_, err = s.List(ctx, "")
		assert.ErrorIs(t, err, boom)
		client.AssertExpectations(t)
	})
}
