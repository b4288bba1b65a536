package kmercount

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

const (
	// defaultReadAhead is how many blocks the reader goroutine may queue.
	defaultReadAhead = 4
)

// zstdMagic is the little-endian zstd frame magic number 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Block is one buffer delivered by a BlockSource. The final block of a
// stream has EndOfStream set and may be empty.
type Block struct {
	Data        []byte
	EndOfStream bool
}

// BlockSource delivers an input as an ordered sequence of blocks.
//
// Next blocks until the next block is available and returns blocks strictly
// in input order. Exactly one block has EndOfStream set and it is the last
// one; calling Next after it returns io.EOF. The engine is the only caller
// and never calls Next concurrently. A block's Data must stay unchanged
// until the engine run returns.
type BlockSource interface {
	Next() (Block, error)
}

// BytesSource splits an in-memory buffer into blocks without copying.
type BytesSource struct {
	data      []byte
	blockSize int
	off       int
	done      bool
}

// NewBytesSource returns a source over data with the given block size.
// If len(data) is a multiple of blockSize the final block is empty.
func NewBytesSource(data []byte, blockSize int) *BytesSource {
	return &BytesSource{data: data, blockSize: max(blockSize, 1)}
}

// Next implements BlockSource.
func (s *BytesSource) Next() (Block, error) {
	if s.done {
		return Block{}, io.EOF
	}
	end := s.off + s.blockSize
	if end > len(s.data) {
		s.done = true
		b := Block{Data: s.data[s.off:], EndOfStream: true}
		s.off = len(s.data)
		return b, nil
	}
	b := Block{Data: s.data[s.off:end:end]}
	s.off = end
	return b, nil
}

// SourceOption configures a FileSource.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	readAhead   int
	stripBreaks bool
}

// WithReadAhead sets how many blocks may be read ahead of the consumer.
func WithReadAhead(n int) SourceOption {
	return func(c *sourceConfig) {
		c.readAhead = n
	}
}

// StripLineBreaks drops '\n' and '\r' bytes so that a sequence wrapped over
// several lines is counted as one continuous sequence.
func StripLineBreaks() SourceOption {
	return func(c *sourceConfig) {
		c.stripBreaks = true
	}
}

type blockResult struct {
	block Block
	err   error
}

// FileSource reads a file in fixed-size blocks on a background goroutine.
// Files starting with the zstd magic number are decompressed transparently;
// blocks then hold decompressed bytes.
type FileSource struct {
	file      *os.File
	dec       *zstd.Decoder
	size      int64
	blocks    chan blockResult
	stop      chan struct{}
	done      chan struct{}
	delivered bool
	lastErr   error
	closed    bool
}

// OpenFileSource opens path and starts reading blocks of blockSize bytes.
func OpenFileSource(path string, blockSize int, opts ...SourceOption) (*FileSource, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	cfg := sourceConfig{readAhead: defaultReadAhead}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.readAhead < 1 {
		cfg.readAhead = 1
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat input: %w", err), file.Close())
	}

	s := &FileSource{
		file:   file,
		size:   stat.Size(),
		blocks: make(chan blockResult, cfg.readAhead),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	br := bufio.NewReaderSize(file, min(blockSize, 1<<20))
	var r io.Reader = br
	if magic, _ := br.Peek(len(zstdMagic)); bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open zstd stream: %w", err), file.Close())
		}
		s.dec = dec
		r = dec
	}
	if cfg.stripBreaks {
		r = &lineBreakStripper{r: r}
	}

	go s.read(r, blockSize)
	return s, nil
}

// Size returns the on-disk size of the input. For compressed input the
// decompressed length is unknown up front.
func (s *FileSource) Size() int64 { return s.size }

// Compressed reports whether the input is being decompressed.
func (s *FileSource) Compressed() bool { return s.dec != nil }

func (s *FileSource) read(r io.Reader, blockSize int) {
	defer close(s.done)
	for {
		buf := make([]byte, blockSize)
		n, err := io.ReadFull(r, buf)
		var res blockResult
		switch {
		case err == nil:
			res.block = Block{Data: buf}
		case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
			res.block = Block{Data: buf[:n], EndOfStream: true}
		default:
			res.err = fmt.Errorf("read input: %w", err)
		}
		select {
		case s.blocks <- res:
		case <-s.stop:
			return
		}
		if res.err != nil || res.block.EndOfStream {
			return
		}
	}
}

// Next implements BlockSource.
func (s *FileSource) Next() (Block, error) {
	if s.delivered {
		if s.lastErr != nil {
			return Block{}, s.lastErr
		}
		return Block{}, io.EOF
	}
	res := <-s.blocks
	if res.err != nil {
		s.delivered = true
		s.lastErr = res.err
		return Block{}, res.err
	}
	if res.block.EndOfStream {
		s.delivered = true
	}
	return res.block, nil
}

// Close stops the reader goroutine and closes the file. Idempotent.
func (s *FileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.stop)
	<-s.done
	if s.dec != nil {
		s.dec.Close()
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close input: %w", err)
	}
	return nil
}

// lineBreakStripper removes '\n' and '\r' from the wrapped reader.
type lineBreakStripper struct {
	r io.Reader
}

func (l *lineBreakStripper) Read(p []byte) (int, error) {
	for {
		n, err := l.r.Read(p)
		w := 0
		for _, b := range p[:n] {
			if b != '\n' && b != '\r' {
				p[w] = b
				w++
			}
		}
		if w > 0 || err != nil {
			return w, err
		}
	}
}
