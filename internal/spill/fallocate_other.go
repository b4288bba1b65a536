//go:build !linux && !darwin

package spill

import "os"

// reserve sets the spill file size. Without a native fallocate the blocks
// may not be reserved, so disk-full can surface later as a write fault.
func reserve(file *os.File, size int64) error {
	return file.Truncate(size)
}
