package streams

import (
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/extent"
)

// SubStream exposes the window [offset, offset+length) of a parent stream as
// a stream of its own. The disk group assembler uses it to bound the region
// of a physical disk an extent record describes.
type SubStream struct {
	parent    SparseStream
	offset    int64
	length    int64
	ownership Ownership
	pos       int64
}

// NewSub creates a bounded view over parent. The window must lie entirely
// within the parent's address space.
func NewSub(parent SparseStream, offset, length int64, ownership Ownership) (*SubStream, error) {
	if offset < 0 || length < 0 || offset+length > parent.Length() {
		return nil, fmt.Errorf("sub-stream window [%d..%d) outside parent of length %d: %w",
			offset, offset+length, parent.Length(), ErrFormat)
	}
	return &SubStream{parent: parent, offset: offset, length: length, ownership: ownership}, nil
}

func (s *SubStream) Length() int64 { return s.length }

func (s *SubStream) CanWrite() bool { return s.parent.CanWrite() }

func (s *SubStream) Extents() []extent.Extent {
	return s.ExtentsInRange(0, s.length)
}

func (s *SubStream) ExtentsInRange(start, count int64) []extent.Extent {
	clipped := extent.Clip([]extent.Extent{extent.New(start, count)}, 0, s.length)
	if len(clipped) == 0 {
		return nil
	}
	window := clipped[0]
	parentExtents := s.parent.ExtentsInRange(s.offset+window.Start, window.Length)
	return extent.Offset(parentExtents, -s.offset)
}

func (s *SubStream) ReadAt(p []byte, pos int64) (int, error) {
	n, err := clampRead(pos, s.length, p)
	if err != nil {
		return 0, err
	}
	read, err := s.parent.ReadAt(p[:n], s.offset+pos)
	if err == io.EOF && read == n {
		err = nil
	}
	if err != nil {
		return read, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *SubStream) WriteAt(p []byte, pos int64) (int, error) {
	if !s.parent.CanWrite() {
		return 0, fmt.Errorf("sub-stream write: %w", ErrUnsupportedOperation)
	}
	if pos < 0 || pos+int64(len(p)) > s.length {
		return 0, fmt.Errorf("sub-stream write at %d: %d bytes exceed window length %d",
			pos, len(p), s.length)
	}
	return s.parent.WriteAt(p, s.offset+pos)
}

func (s *SubStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *SubStream) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *SubStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.length, offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *SubStream) Close() error {
	return closeChildren(s.ownership, []SparseStream{s.parent})
}
