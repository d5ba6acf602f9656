//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	// Blobs are read front to back exactly once.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, unix.Munmap, nil
}
