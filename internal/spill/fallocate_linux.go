//go:build linux

package spill

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserve allocates the full size of a spill file before it is mapped, so a
// full disk fails the spill with an error instead of a SIGBUS mid-copy.
func reserve(file *os.File, size int64) error {
	if err := unix.Fallocate(int(file.Fd()), 0, 0, size); err != nil {
		// Some filesystems (tmpfs on old kernels, NFS) lack fallocate.
		if err != unix.EOPNOTSUPP && err != unix.ENOSYS {
			return err
		}
	}
	return unix.Ftruncate(int(file.Fd()), size)
}
