// Package cache provides a read-through LRU block cache that wraps any
// sparse stream without changing its length or sparseness reporting.
package cache

import (
	"container/list"
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/extent"
	"github.com/zxrohex/diskstream/internal/streams"
)

// Config holds block cache configuration.
type Config struct {
	// BlockSize is the cache granule in bytes. Must be a power of two.
	BlockSize int64

	// MaxBlocks is the block budget before LRU eviction kicks in.
	MaxBlocks int
}

// DefaultConfig returns the recommended cache configuration: 4 KiB blocks,
// 4 MiB budget.
func DefaultConfig() Config {
	return Config{BlockSize: 4096, MaxBlocks: 1024}
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// cachedBlock is one resident block with its LRU list element.
type cachedBlock struct {
	index   int64
	data    []byte
	element *list.Element
}

// BlockCache decorates a sparse stream with an LRU set of fixed-size blocks.
// Misses always read one full block from the underlying stream. Writes go
// through to the underlying stream first; cached copies are updated only
// after the underlying write succeeded, so a failed or cancelled operation
// never leaves a stale block marked valid.
//
// A cache belongs to one stream graph and, like every stream in this module,
// is not safe for concurrent use without external synchronization.
type BlockCache struct {
	raw       streams.SparseStream
	blockSize int64
	maxBlocks int
	ownership streams.Ownership

	blocks map[int64]*cachedBlock
	order  *list.List // front = most recently used

	stats Stats
	pos   int64
}

// New wraps raw in a block cache. The block size must be a power of two and
// the block budget positive.
func New(raw streams.SparseStream, cfg Config, ownership streams.Ownership) (*BlockCache, error) {
	if cfg.BlockSize <= 0 || cfg.BlockSize&(cfg.BlockSize-1) != 0 {
		return nil, fmt.Errorf("cache: block size %d is not a power of two: %w",
			cfg.BlockSize, streams.ErrFormat)
	}
	if cfg.MaxBlocks <= 0 {
		return nil, fmt.Errorf("cache: block budget %d must be positive: %w",
			cfg.MaxBlocks, streams.ErrFormat)
	}
	return &BlockCache{
		raw:       raw,
		blockSize: cfg.BlockSize,
		maxBlocks: cfg.MaxBlocks,
		ownership: ownership,
		blocks:    make(map[int64]*cachedBlock),
		order:     list.New(),
	}, nil
}

// Statistics returns a copy of the current counters.
func (c *BlockCache) Statistics() Stats { return c.stats }

func (c *BlockCache) Length() int64 { return c.raw.Length() }

func (c *BlockCache) CanWrite() bool { return c.raw.CanWrite() }

// Extents pass through unchanged; caching does not alter sparseness.
func (c *BlockCache) Extents() []extent.Extent { return c.raw.Extents() }

func (c *BlockCache) ExtentsInRange(start, count int64) []extent.Extent {
	return c.raw.ExtentsInRange(start, count)
}

// getBlock returns the resident block at index, filling it from the
// underlying stream on a miss. A failed fill inserts nothing.
func (c *BlockCache) getBlock(index int64) ([]byte, error) {
	if b, ok := c.blocks[index]; ok {
		c.order.MoveToFront(b.element)
		c.stats.Hits++
		return b.data, nil
	}
	c.stats.Misses++

	// Always fill a whole block; short reads at the tail are zero padded.
	data := make([]byte, c.blockSize)
	n, err := c.raw.ReadAt(data, index*c.blockSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("cache: fill block %d: %w", index, err)
	}
	for i := n; i < len(data); i++ {
		data[i] = 0
	}

	b := &cachedBlock{index: index, data: data}
	b.element = c.order.PushFront(b)
	c.blocks[index] = b

	for len(c.blocks) > c.maxBlocks {
		oldest := c.order.Back()
		evicted := oldest.Value.(*cachedBlock)
		c.order.Remove(oldest)
		delete(c.blocks, evicted.index)
		c.stats.Evictions++
	}
	return data, nil
}

func (c *BlockCache) ReadAt(p []byte, pos int64) (int, error) {
	length := c.raw.Length()
	if pos < 0 {
		return 0, fmt.Errorf("cache read: negative position %d", pos)
	}
	if pos >= length {
		return 0, io.EOF
	}
	n := len(p)
	if remaining := length - pos; int64(n) > remaining {
		n = int(remaining)
	}

	total := 0
	for total < n {
		index := pos / c.blockSize
		offInBlock := pos % c.blockSize
		chunk := int(c.blockSize - offInBlock)
		if chunk > n-total {
			chunk = n - total
		}
		block, err := c.getBlock(index)
		if err != nil {
			return total, err
		}
		copy(p[total:total+chunk], block[offInBlock:])
		total += chunk
		pos += int64(chunk)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes through to the underlying stream, then refreshes any
// resident blocks the write touched.
func (c *BlockCache) WriteAt(p []byte, pos int64) (int, error) {
	if !c.raw.CanWrite() {
		return 0, fmt.Errorf("cache write: %w", streams.ErrUnsupportedOperation)
	}
	n, err := c.raw.WriteAt(p, pos)
	if n > 0 {
		c.updateBlocks(p[:n], pos)
	}
	return n, err
}

// updateBlocks patches the written range into resident blocks. Blocks not
// resident are left to fault in on their next read.
func (c *BlockCache) updateBlocks(p []byte, pos int64) {
	done := 0
	for done < len(p) {
		index := pos / c.blockSize
		offInBlock := pos % c.blockSize
		chunk := int(c.blockSize - offInBlock)
		if chunk > len(p)-done {
			chunk = len(p) - done
		}
		if b, ok := c.blocks[index]; ok {
			copy(b.data[offInBlock:], p[done:done+chunk])
			c.order.MoveToFront(b.element)
		}
		done += chunk
		pos += int64(chunk)
	}
}

func (c *BlockCache) Read(p []byte) (int, error) {
	n, err := c.ReadAt(p, c.pos)
	c.pos += int64(n)
	return n, err
}

func (c *BlockCache) Write(p []byte) (int, error) {
	n, err := c.WriteAt(p, c.pos)
	c.pos += int64(n)
	return n, err
}

func (c *BlockCache) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = c.pos + offset
	case io.SeekEnd:
		next = c.raw.Length() + offset
	default:
		return c.pos, fmt.Errorf("cache seek: invalid whence %d", whence)
	}
	if next < 0 {
		return c.pos, fmt.Errorf("cache seek: negative position %d", next)
	}
	c.pos = next
	return next, nil
}

func (c *BlockCache) Close() error {
	c.blocks = nil
	c.order = nil
	if c.ownership == streams.OwnChildren {
		return c.raw.Close()
	}
	return nil
}
