package spill

import (
	"errors"
	"fmt"
	"iter"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/tamirms/kmercount/internal/codec"
)

// Write spills records to a new file at path. count must be the exact number
// of pairs records yields; the file is pre-allocated to count*RecordSize bytes
// and filled through a writable mapping. The file must not already exist.
//
// On any error the partial file is removed.
func Write(path string, records iter.Seq2[codec.Key, uint64], count int) (Info, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return Info{}, fmt.Errorf("create spill file: %w", err)
	}

	info, err := writeMapped(file, records, count)
	if err != nil {
		return Info{}, errors.Join(err, file.Close(), os.Remove(path))
	}
	if err := file.Close(); err != nil {
		return Info{}, errors.Join(fmt.Errorf("close spill file: %w", err), os.Remove(path))
	}
	info.Path = path
	return info, nil
}

func writeMapped(file *os.File, records iter.Seq2[codec.Key, uint64], count int) (Info, error) {
	size := int64(count) * RecordSize
	digest := xxhash.New()
	if size == 0 {
		return Info{Checksum: digest.Sum64()}, nil
	}

	if err := reserve(file, size); err != nil {
		return Info{}, fmt.Errorf("allocate %d bytes for spill file: %w", size, err)
	}
	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		return Info{}, fmt.Errorf("mmap spill file: %w", err)
	}
	data := []byte(mm)
	prefaultRegion(data)

	var (
		written int
		total   uint64
		overrun bool
	)
	for key, c := range records {
		if written == count {
			overrun = true
			break
		}
		rec := data[written*RecordSize : (written+1)*RecordSize]
		putRecord(rec, key, c)
		_, _ = digest.Write(rec)
		total += c
		written++
	}

	if overrun || written != count {
		return Info{}, errors.Join(
			fmt.Errorf("spill record count mismatch: declared %d, sequence yielded more or fewer (%d written)", count, written),
			mm.Unmap())
	}
	if err := mm.Flush(); err != nil {
		return Info{}, errors.Join(fmt.Errorf("flush spill file: %w", err), mm.Unmap())
	}
	if err := mm.Unmap(); err != nil {
		return Info{}, fmt.Errorf("munmap spill file: %w", err)
	}

	return Info{
		ByteCount: size,
		Records:   uint64(count),
		Total:     total,
		Checksum:  digest.Sum64(),
	}, nil
}
