//go:build linux

package spill

import "golang.org/x/sys/unix"

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+). Older kernels
// return EINVAL, which is ignored.
const madvPopulateWrite = 23

// adviseReadBack hints that a spill file is about to be scanned front to back
// once per resolution phase. Best-effort: errors are ignored.
func adviseReadBack(fd int, data []byte) {
	_ = unix.Fadvise(fd, 0, int64(len(data)), unix.FADV_SEQUENTIAL)
	if len(data) > 0 {
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	}
}

// prefaultRegion populates the pages of a freshly mapped spill file so the
// record copy loop does not take a fault per page.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}
