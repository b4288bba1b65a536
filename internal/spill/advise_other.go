//go:build !linux

package spill

// adviseReadBack is a no-op: fadvise/madvise hints are Linux-specific here.
func adviseReadBack(fd int, data []byte) {}

// prefaultRegion is a no-op without MADV_POPULATE_WRITE.
func prefaultRegion(data []byte) {}
