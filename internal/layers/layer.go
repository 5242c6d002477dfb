// Package layers implements differencing disk chains: a child layer that
// stores only changed blocks over a parent stream, reading through to the
// parent for everything else.
package layers

import (
	"fmt"
	"io"
	"sort"

	"github.com/zxrohex/diskstream/internal/extent"
	"github.com/zxrohex/diskstream/internal/streams"
)

// Layer is a sparse stream that additionally exposes its block allocation
// state, so a chain can decide per block whether to fall through to the
// parent.
type Layer interface {
	streams.SparseStream

	// BlockSize returns the allocation granule in bytes.
	BlockSize() int64

	// IsAllocated reports whether the block holds layer-local data.
	IsAllocated(block int64) bool
}

// MemoryLayer is a writable in-memory layer that allocates blocks on first
// write.
type MemoryLayer struct {
	length    int64
	blockSize int64
	blocks    map[int64][]byte
	pos       int64
}

// NewMemoryLayer creates an empty layer of the given length and block size.
func NewMemoryLayer(length, blockSize int64) (*MemoryLayer, error) {
	if length < 0 || blockSize <= 0 {
		return nil, fmt.Errorf("layer geometry length=%d blockSize=%d: %w",
			length, blockSize, streams.ErrFormat)
	}
	return &MemoryLayer{
		length:    length,
		blockSize: blockSize,
		blocks:    make(map[int64][]byte),
	}, nil
}

func (l *MemoryLayer) Length() int64 { return l.length }

func (l *MemoryLayer) BlockSize() int64 { return l.blockSize }

func (l *MemoryLayer) CanWrite() bool { return true }

func (l *MemoryLayer) IsAllocated(block int64) bool {
	_, ok := l.blocks[block]
	return ok
}

func (l *MemoryLayer) Extents() []extent.Extent {
	indexes := make([]int64, 0, len(l.blocks))
	for b := range l.blocks {
		indexes = append(indexes, b)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	list := make([]extent.Extent, 0, len(indexes))
	for _, b := range indexes {
		list = append(list, extent.New(b*l.blockSize, l.blockSize))
	}
	return extent.Clip(extent.Merge(list), 0, l.length)
}

func (l *MemoryLayer) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(l.Extents(), start, count)
}

func (l *MemoryLayer) ReadAt(p []byte, pos int64) (int, error) {
	if pos < 0 {
		return 0, fmt.Errorf("layer read: negative position %d", pos)
	}
	if pos >= l.length {
		return 0, io.EOF
	}
	n := len(p)
	if remaining := l.length - pos; int64(n) > remaining {
		n = int(remaining)
	}

	done := 0
	for done < n {
		block := pos / l.blockSize
		offInBlock := pos % l.blockSize
		chunk := int(l.blockSize - offInBlock)
		if chunk > n-done {
			chunk = n - done
		}
		if data, ok := l.blocks[block]; ok {
			copy(p[done:done+chunk], data[offInBlock:])
		} else {
			for i := done; i < done+chunk; i++ {
				p[i] = 0
			}
		}
		done += chunk
		pos += int64(chunk)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (l *MemoryLayer) WriteAt(p []byte, pos int64) (int, error) {
	if pos < 0 || pos+int64(len(p)) > l.length {
		return 0, fmt.Errorf("layer write at %d: %d bytes exceed length %d", pos, len(p), l.length)
	}
	done := 0
	for done < len(p) {
		block := pos / l.blockSize
		offInBlock := pos % l.blockSize
		chunk := int(l.blockSize - offInBlock)
		if chunk > len(p)-done {
			chunk = len(p) - done
		}
		data, ok := l.blocks[block]
		if !ok {
			data = make([]byte, l.blockSize)
			l.blocks[block] = data
		}
		copy(data[offInBlock:], p[done:done+chunk])
		done += chunk
		pos += int64(chunk)
	}
	return len(p), nil
}

func (l *MemoryLayer) Read(p []byte) (int, error) {
	n, err := l.ReadAt(p, l.pos)
	l.pos += int64(n)
	return n, err
}

func (l *MemoryLayer) Write(p []byte) (int, error) {
	n, err := l.WriteAt(p, l.pos)
	l.pos += int64(n)
	return n, err
}

func (l *MemoryLayer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = l.pos + offset
	case io.SeekEnd:
		next = l.length + offset
	default:
		return l.pos, fmt.Errorf("layer seek: invalid whence %d", whence)
	}
	if next < 0 {
		return l.pos, fmt.Errorf("layer seek: negative position %d", next)
	}
	l.pos = next
	return next, nil
}

func (l *MemoryLayer) Close() error { return nil }
