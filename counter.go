package kmercount

import (
	"fmt"

	"github.com/tamirms/kmercount/internal/chunk"
	"github.com/tamirms/kmercount/internal/codec"
	"github.com/tamirms/kmercount/internal/table"
	"github.com/tamirms/kmercount/internal/task"
)

// counterWork describes one chunk counter: the main chunk, and optionally the
// chunk that follows it so the boundary-straddling k-mers are counted too.
type counterWork struct {
	seq     uint64
	main    chunk.Chunk
	next    chunk.Chunk
	hasNext bool
}

// chunkCounter counts the k-mers of one chunk (plus its crossing section)
// into a private table on its own goroutine. It never touches the aggregate;
// the engine merges its table after joining it.
type chunkCounter struct {
	seq  uint64
	task *task.Task[*table.Table]
}

// startCounter launches the counting goroutine.
func startCounter(w counterWork, k int, cd codec.Codec, hint table.Config) *chunkCounter {
	return &chunkCounter{
		seq: w.seq,
		task: task.Go(func() (*table.Table, error) {
			return countWork(w, k, cd, hint)
		}),
	}
}

// wait blocks until the counter is done and returns its table.
func (c *chunkCounter) wait() (*table.Table, error) {
	tbl, err := c.task.Wait()
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", c.seq, err)
	}
	return tbl, nil
}

func countWork(w counterWork, k int, cd codec.Codec, hint table.Config) (*table.Table, error) {
	tbl := table.New(hint)
	if err := countChunk(tbl, w.main, k, cd); err != nil {
		return nil, err
	}
	if !w.hasNext {
		return tbl, nil
	}
	x := chunk.Cross(w.main, w.next, k)
	defer x.Release()
	if err := countChunk(tbl, x.Chunk(), k, cd); err != nil {
		return nil, fmt.Errorf("crossing: %w", err)
	}
	return tbl, nil
}

// countChunk slides a k-long window over c and increments every window's key.
// It performs exactly c.Windows(k) increments.
func countChunk(tbl *table.Table, c chunk.Chunk, k int, cd codec.Codec) error {
	data := c.Bytes()
	if len(data) < k {
		return nil
	}
	key, err := cd.Encode(data, k)
	if err != nil {
		return fmt.Errorf("offset 0: %w", err)
	}
	tbl.Inc(key)
	for i := k; i < len(data); i++ {
		key, err = cd.Shift(key, k, data[i])
		if err != nil {
			return fmt.Errorf("offset %d: %w", i, err)
		}
		tbl.Inc(key)
	}
	return nil
}
