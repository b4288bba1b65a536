//go:build darwin

package spill

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserve allocates the full size of a spill file before it is mapped.
// F_PREALLOCATE only reserves space; the size is set with ftruncate.
func reserve(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	if err := unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		if err == unix.ENOSPC {
			return err
		}
	}
	return unix.Ftruncate(int(file.Fd()), size)
}
