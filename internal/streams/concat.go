package streams

import (
	"fmt"
	"io"
	"sort"

	"github.com/zxrohex/diskstream/internal/extent"
)

// ConcatStream joins child streams end-to-end in the given order. Children
// are assumed to tile the logical address space with no gap or overlap;
// callers that assemble from untrusted metadata (the disk group) validate
// contiguity before constructing one.
type ConcatStream struct {
	children  []SparseStream
	starts    []int64 // cumulative start of each child
	length    int64
	ownership Ownership
	pos       int64
}

// NewConcat creates a concatenation of one or more children.
func NewConcat(ownership Ownership, children ...SparseStream) (*ConcatStream, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("concat: no children: %w", ErrFormat)
	}
	s := &ConcatStream{
		children:  children,
		starts:    make([]int64, len(children)),
		ownership: ownership,
	}
	for i, c := range children {
		s.starts[i] = s.length
		s.length += c.Length()
	}
	return s, nil
}

func (s *ConcatStream) Length() int64 { return s.length }

func (s *ConcatStream) CanWrite() bool {
	for _, c := range s.children {
		if !c.CanWrite() {
			return false
		}
	}
	return true
}

func (s *ConcatStream) Extents() []extent.Extent {
	var all []extent.Extent
	for i, c := range s.children {
		all = extent.Union(all, extent.Offset(c.Extents(), s.starts[i]))
	}
	return all
}

func (s *ConcatStream) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(s.Extents(), start, count)
}

// locate returns the index of the child owning pos.
func (s *ConcatStream) locate(pos int64) int {
	return sort.Search(len(s.starts), func(i int) bool {
		return s.starts[i] > pos
	}) - 1
}

func (s *ConcatStream) ReadAt(p []byte, pos int64) (int, error) {
	n, err := clampRead(pos, s.length, p)
	if err != nil {
		return 0, err
	}
	total := 0
	for total < n {
		i := s.locate(pos)
		child := s.children[i]
		childPos := pos - s.starts[i]
		chunk := n - total
		if remaining := child.Length() - childPos; int64(chunk) > remaining {
			chunk = int(remaining)
		}
		read, err := child.ReadAt(p[total:total+chunk], childPos)
		total += read
		pos += int64(read)
		if err != nil && !(err == io.EOF && read == chunk) {
			return total, err
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *ConcatStream) WriteAt(p []byte, pos int64) (int, error) {
	if !s.CanWrite() {
		return 0, fmt.Errorf("concat write: %w", ErrUnsupportedOperation)
	}
	if pos < 0 || pos+int64(len(p)) > s.length {
		return 0, fmt.Errorf("concat write at %d: %d bytes exceed length %d",
			pos, len(p), s.length)
	}
	total := 0
	for total < len(p) {
		i := s.locate(pos)
		child := s.children[i]
		childPos := pos - s.starts[i]
		chunk := len(p) - total
		if remaining := child.Length() - childPos; int64(chunk) > remaining {
			chunk = int(remaining)
		}
		written, err := child.WriteAt(p[total:total+chunk], childPos)
		total += written
		pos += int64(written)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *ConcatStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *ConcatStream) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *ConcatStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.length, offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *ConcatStream) Close() error {
	return closeChildren(s.ownership, s.children)
}
