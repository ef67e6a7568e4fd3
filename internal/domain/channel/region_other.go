//go:build !unix

package channel

// Without mmap the region lives on the heap and is only shared in-process.
func mapRegion(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapRegion([]byte) error {
	return nil
}
