package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyFS_WriteLimit(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("limited", Fault{FailAfterBytes: 4})

	f, err := ffs.OpenFile(filepath.Join(dir, "limited.bin"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("abcd"))
	require.NoError(t, err)
	_, err = f.Write([]byte("e"))
	assert.ErrorIs(t, err, ErrInjected)
}

func TestFaultyFS_SyncAndRename(t *testing.T) {
	dir := t.TempDir()
	boom := assert.AnError
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".tmp", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnRename: true, Err: boom})

	f, err := ffs.CreateTemp(dir, "blob-*.tmp")
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())

	err = ffs.Rename(f.Name(), filepath.Join(dir, "blob"))
	assert.ErrorIs(t, err, boom)
}

func TestFaultyFS_Passthrough(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("other", Fault{FailOnClose: true})

	f, err := ffs.OpenFile(filepath.Join(dir, "plain"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	entries, err := ffs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plain", entries[0].Name())
}

func TestFaultyFS_OpenAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	ffs := NewFaultyFS(nil)
	ffs.AddRule("blob", Fault{FailAfterBytes: -1, FailOnRead: true})
	f, err := ffs.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)
	_, err = f.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrInjected)
	require.NoError(t, f.Close())

	ffs.AddRule("blob", Fault{FailOnOpen: true})
	_, err = ffs.OpenFile(path, os.O_RDONLY, 0)
	assert.ErrorIs(t, err, ErrInjected)
}
