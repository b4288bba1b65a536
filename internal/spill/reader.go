package spill

import (
	"errors"
	"fmt"
	"iter"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	kmerrors "github.com/tamirms/kmercount/errors"
	"github.com/tamirms/kmercount/internal/codec"
)

// Reader is a read-only mapping of one spill file.
//
// All may be ranged over any number of times until Close. Close is not safe
// to call concurrently with iteration.
type Reader struct {
	mm   mmap.MMap
	data []byte
}

// Open maps the file described by info and verifies its length and digest.
func Open(info Info) (*Reader, error) {
	r, err := open(info.Path, info.ByteCount)
	if err != nil {
		return nil, err
	}
	if got := xxhash.Sum64(r.data); got != info.Checksum {
		return nil, errors.Join(
			fmt.Errorf("%w: %s: digest 0x%016x, recorded 0x%016x", kmerrors.ErrChecksumFailed, info.Path, got, info.Checksum),
			r.Close())
	}
	return r, nil
}

// OpenPath maps a spill file without a recorded Info. Only the record-size
// invariant is checked.
func OpenPath(path string) (*Reader, error) {
	return open(path, -1)
}

func open(path string, wantSize int64) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spill file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat spill file: %w", err)
	}
	size := stat.Size()
	if size%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %s: %d bytes is not a multiple of the %d-byte record",
			kmerrors.ErrCorruptSpillFile, path, size, RecordSize)
	}
	if wantSize >= 0 && size != wantSize {
		return nil, fmt.Errorf("%w: %s: %d bytes, recorded %d",
			kmerrors.ErrCorruptSpillFile, path, size, wantSize)
	}
	if size == 0 {
		return &Reader{}, nil
	}

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap spill file: %w", err)
	}
	r := &Reader{mm: mm, data: []byte(mm)}
	adviseReadBack(int(file.Fd()), r.data)
	return r, nil
}

// Len returns the number of records.
func (r *Reader) Len() int {
	return len(r.data) / RecordSize
}

// All iterates over the records in file order.
func (r *Reader) All() iter.Seq2[codec.Key, uint64] {
	return func(yield func(codec.Key, uint64) bool) {
		for off := 0; off+RecordSize <= len(r.data); off += RecordSize {
			if !yield(readRecord(r.data[off : off+RecordSize])) {
				return
			}
		}
	}
}

// Close unmaps the file. Idempotent.
func (r *Reader) Close() error {
	if r.mm == nil {
		return nil
	}
	err := r.mm.Unmap()
	r.mm = nil
	r.data = nil
	if err != nil {
		return fmt.Errorf("munmap spill file: %w", err)
	}
	return nil
}
