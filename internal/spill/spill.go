// Package spill writes and reads the flat record files an aggregate spills
// to when it grows past its threshold.
//
// File layout: a length-implicit array of fixed-size little-endian records.
//
//	Offset  Size  Field
//	0       8     Key.Lo   uint64_le
//	8       8     Key.Hi   uint64_le
//	16      8     Count    uint64_le
//
// There is no header or footer. A file whose length is not a multiple of
// RecordSize is corrupt. The xxhash64 digest of the whole file is kept in the
// in-memory Info handle, not in the file, and is verified on read-back.
package spill

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/tamirms/kmercount/internal/codec"
)

// RecordSize is the size of one (key, count) record.
const RecordSize = codec.KeySize + 8

// Info is the handle to one spilled file (the SerializationInfo of the
// pipeline). Total is the sum of counts in the file.
type Info struct {
	Path      string
	ByteCount int64
	Records   uint64
	Total     uint64
	Checksum  uint64
}

func putRecord(dst []byte, key codec.Key, count uint64) {
	_ = dst[RecordSize-1]
	key.PutBytes(dst[0:codec.KeySize])
	binary.LittleEndian.PutUint64(dst[codec.KeySize:RecordSize], count)
}

func readRecord(src []byte) (codec.Key, uint64) {
	_ = src[RecordSize-1]
	return codec.KeyFromBytes(src[0:codec.KeySize]),
		binary.LittleEndian.Uint64(src[codec.KeySize:RecordSize])
}

// Namer supplies the path of the next spill file. Implementations must never
// return the same path twice.
type Namer interface {
	Next() string
}

// SequenceNamer names files spill-000001.bin, spill-000002.bin, ... inside
// one directory. The sequence is owned by the namer, not by package state.
type SequenceNamer struct {
	dir string
	seq atomic.Uint64
}

// NewSequenceNamer returns a namer rooted at dir.
func NewSequenceNamer(dir string) *SequenceNamer {
	return &SequenceNamer{dir: dir}
}

// Next returns the next path in the sequence.
func (n *SequenceNamer) Next() string {
	return filepath.Join(n.dir, fmt.Sprintf("spill-%06d.bin", n.seq.Add(1)))
}

// Dir returns the directory files are named in.
func (n *SequenceNamer) Dir() string { return n.dir }

// Remove deletes a spilled file. A file that is already gone is not an error.
func Remove(info Info) error {
	if err := os.Remove(info.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove spill file: %w", err)
	}
	return nil
}
