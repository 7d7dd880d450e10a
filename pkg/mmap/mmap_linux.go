//go:build linux

package mmap

import (
	"syscall"
)

func mapFile(fd uintptr, length int) ([]byte, error) {
	data, err := syscall.Mmap(int(fd), 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	// Advisory only; a failure leaves the mapping usable.
	_ = syscall.Madvise(data, syscall.MADV_SEQUENTIAL)
	return data, nil
}

func unmapFile(b []byte) error {
	return syscall.Munmap(b)
}
