package layers

import (
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/extent"
	"github.com/zxrohex/diskstream/internal/streams"
)

// Chain presents a child layer over a parent stream as one sparse stream.
// Reads consult the child's allocation map block by block and fall through
// to the parent for unallocated blocks. Writes land in the child only; a
// partial-block write first copies the parent's block into the child so the
// untouched remainder of the grain keeps its inherited content.
type Chain struct {
	child     Layer
	parent    streams.SparseStream
	ownership streams.Ownership
	pos       int64
}

// NewChain layers child over parent. Both must have the same logical length.
func NewChain(child Layer, parent streams.SparseStream, ownership streams.Ownership) (*Chain, error) {
	if child.Length() != parent.Length() {
		return nil, fmt.Errorf("chain: child length %d differs from parent length %d: %w",
			child.Length(), parent.Length(), streams.ErrFormat)
	}
	return &Chain{child: child, parent: parent, ownership: ownership}, nil
}

func (c *Chain) Length() int64 { return c.child.Length() }

func (c *Chain) CanWrite() bool { return c.child.CanWrite() }

// Extents reports the union of both layers: a byte is non-zero if either
// layer holds data for it.
func (c *Chain) Extents() []extent.Extent {
	return extent.Union(c.child.Extents(), c.parent.Extents())
}

func (c *Chain) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(c.Extents(), start, count)
}

func (c *Chain) ReadAt(p []byte, pos int64) (int, error) {
	length := c.Length()
	if pos < 0 {
		return 0, fmt.Errorf("chain read: negative position %d", pos)
	}
	if pos >= length {
		return 0, io.EOF
	}
	n := len(p)
	if remaining := length - pos; int64(n) > remaining {
		n = int(remaining)
	}

	blockSize := c.child.BlockSize()
	done := 0
	for done < n {
		block := pos / blockSize
		offInBlock := pos % blockSize
		chunk := int(blockSize - offInBlock)
		if chunk > n-done {
			chunk = n - done
		}

		var (
			read int
			err  error
		)
		if c.child.IsAllocated(block) {
			read, err = c.child.ReadAt(p[done:done+chunk], pos)
		} else {
			read, err = c.parent.ReadAt(p[done:done+chunk], pos)
		}
		if err != nil && !(err == io.EOF && read == chunk) {
			return done + read, err
		}
		done += chunk
		pos += int64(chunk)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes to the child layer only. Blocks the write only partially
// covers are first populated from the parent.
func (c *Chain) WriteAt(p []byte, pos int64) (int, error) {
	if !c.child.CanWrite() {
		return 0, fmt.Errorf("chain write: %w", streams.ErrUnsupportedOperation)
	}
	if pos < 0 || pos+int64(len(p)) > c.Length() {
		return 0, fmt.Errorf("chain write at %d: %d bytes exceed length %d",
			pos, len(p), c.Length())
	}

	blockSize := c.child.BlockSize()
	done := 0
	for done < len(p) {
		block := pos / blockSize
		offInBlock := pos % blockSize
		chunk := int(blockSize - offInBlock)
		if chunk > len(p)-done {
			chunk = len(p) - done
		}

		partial := offInBlock != 0 || int64(chunk) < blockSize
		if partial && !c.child.IsAllocated(block) {
			if err := c.copyBlockFromParent(block); err != nil {
				return done, err
			}
		}
		if _, err := c.child.WriteAt(p[done:done+chunk], pos); err != nil {
			return done, err
		}
		done += chunk
		pos += int64(chunk)
	}
	return len(p), nil
}

// copyBlockFromParent faults one parent block into the child ahead of a
// partial overwrite.
func (c *Chain) copyBlockFromParent(block int64) error {
	blockSize := c.child.BlockSize()
	start := block * blockSize
	size := blockSize
	if remaining := c.Length() - start; size > remaining {
		size = remaining
	}
	buf := make([]byte, size)
	if _, err := c.parent.ReadAt(buf, start); err != nil && err != io.EOF {
		return fmt.Errorf("chain: fault block %d from parent: %w", block, err)
	}
	if _, err := c.child.WriteAt(buf, start); err != nil {
		return fmt.Errorf("chain: populate block %d: %w", block, err)
	}
	return nil
}

func (c *Chain) Read(p []byte) (int, error) {
	n, err := c.ReadAt(p, c.pos)
	c.pos += int64(n)
	return n, err
}

func (c *Chain) Write(p []byte) (int, error) {
	n, err := c.WriteAt(p, c.pos)
	c.pos += int64(n)
	return n, err
}

func (c *Chain) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = c.pos + offset
	case io.SeekEnd:
		next = c.Length() + offset
	default:
		return c.pos, fmt.Errorf("chain seek: invalid whence %d", whence)
	}
	if next < 0 {
		return c.pos, fmt.Errorf("chain seek: negative position %d", next)
	}
	c.pos = next
	return next, nil
}

func (c *Chain) Close() error {
	if c.ownership != streams.OwnChildren {
		return nil
	}
	err := c.child.Close()
	if perr := c.parent.Close(); err == nil {
		err = perr
	}
	return err
}
