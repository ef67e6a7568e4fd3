//go:build unix

package channel

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapRegion allocates a zeroed anonymous MAP_SHARED region outside the Go
// heap. Children forked after creation see the same pages.
func mapRegion(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return mem, nil
}

func unmapRegion(mem []byte) error {
	return unix.Munmap(mem)
}
