package streams

import (
	"fmt"

	"github.com/zxrohex/diskstream/internal/extent"
)

// MirrorStream holds children that each carry a complete, independent copy
// of the same content. Reads and extent reporting come from the primary
// child (the first supplied); writes fan out to every child.
//
// A write that fails on a subset of children reports the first error after
// attempting all of them and does not roll back the children that already
// succeeded. Callers needing stronger guarantees should treat mirrors as
// read-only.
type MirrorStream struct {
	children  []SparseStream
	ownership Ownership
	pos       int64
}

// NewMirror creates a mirror over one or more equivalent children.
func NewMirror(ownership Ownership, children ...SparseStream) (*MirrorStream, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("mirror: no children: %w", ErrFormat)
	}
	return &MirrorStream{children: children, ownership: ownership}, nil
}

// primary returns the designated read child.
func (s *MirrorStream) primary() SparseStream { return s.children[0] }

func (s *MirrorStream) Length() int64 { return s.primary().Length() }

func (s *MirrorStream) CanWrite() bool {
	for _, c := range s.children {
		if !c.CanWrite() {
			return false
		}
	}
	return true
}

func (s *MirrorStream) Extents() []extent.Extent {
	return s.primary().Extents()
}

func (s *MirrorStream) ExtentsInRange(start, count int64) []extent.Extent {
	return s.primary().ExtentsInRange(start, count)
}

func (s *MirrorStream) ReadAt(p []byte, pos int64) (int, error) {
	return s.primary().ReadAt(p, pos)
}

func (s *MirrorStream) WriteAt(p []byte, pos int64) (int, error) {
	if !s.CanWrite() {
		return 0, fmt.Errorf("mirror write: %w", ErrUnsupportedOperation)
	}
	written := len(p)
	var firstErr error
	for i, c := range s.children {
		n, err := c.WriteAt(p, pos)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mirror write to child %d at %d: %w", i, pos, err)
		}
		if n < written {
			written = n
		}
	}
	return written, firstErr
}

func (s *MirrorStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *MirrorStream) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *MirrorStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.Length(), offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *MirrorStream) Close() error {
	return closeChildren(s.ownership, s.children)
}
