//go:build darwin

package mmap

import (
	"syscall"
	"unsafe"
)

func mapFile(fd uintptr, length int) ([]byte, error) {
	data, err := syscall.Mmap(int(fd), 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	// syscall has no Madvise on darwin; the advice is optional anyway.
	_, _, _ = syscall.Syscall(syscall.SYS_MADVISE,
		uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)), uintptr(syscall.MADV_SEQUENTIAL))
	return data, nil
}

func unmapFile(b []byte) error {
	return syscall.Munmap(b)
}
