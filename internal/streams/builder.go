package streams

import (
	"fmt"
	"io"
	"sort"

	"github.com/zxrohex/diskstream/internal/extent"
)

// ByteSource is the collaborator capability behind one builder extent: it
// produces a readable stream of raw or decoded bytes on demand. Ownership of
// the returned reader passes to the caller.
type ByteSource interface {
	// Open produces the decoded content of this source.
	Open() (io.ReadCloser, error)

	// Length returns the decoded length in bytes.
	Length() int64
}

// BuilderExtent places a byte source at an offset in the logical stream
// being assembled.
type BuilderExtent struct {
	Offset int64
	Source ByteSource
}

// BuiltStream assembles one logical read-only stream from independently
// openable extents, filling ranges no extent covers with zeros. Extents need
// not be sorted, contiguous or disjoint; where two extents overlap the
// last-registered one wins. Each source is opened lazily per read and closed
// before the read returns.
type BuiltStream struct {
	length  int64
	extents []BuilderExtent
	pos     int64
}

// NewBuilt creates a built stream of the declared logical length.
func NewBuilt(length int64, extents []BuilderExtent) *BuiltStream {
	if length < 0 {
		panic(fmt.Sprintf("streams: negative built stream length %d", length))
	}
	return &BuiltStream{length: length, extents: extents}
}

func (s *BuiltStream) Length() int64 { return s.length }

func (s *BuiltStream) CanWrite() bool { return false }

func (s *BuiltStream) Extents() []extent.Extent {
	declared := make([]extent.Extent, 0, len(s.extents))
	for _, be := range s.extents {
		if be.Source.Length() > 0 {
			declared = append(declared, extent.New(be.Offset, be.Source.Length()))
		}
	}
	sort.Slice(declared, func(i, j int) bool { return declared[i].Start < declared[j].Start })
	return extent.Clip(extent.Merge(declared), 0, s.length)
}

func (s *BuiltStream) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(s.Extents(), start, count)
}

func (s *BuiltStream) ReadAt(p []byte, pos int64) (int, error) {
	n, err := clampRead(pos, s.length, p)
	if err != nil {
		return 0, err
	}
	// Holes read as zero; covering extents then overwrite their slices in
	// registration order, so a later overlapping extent wins.
	zeroFill(p[:n])
	for _, be := range s.extents {
		if err := s.copyOverlap(be, p[:n], pos); err != nil {
			return 0, err
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// copyOverlap copies the part of be that intersects [pos, pos+len(p)) into p.
func (s *BuiltStream) copyOverlap(be BuilderExtent, p []byte, pos int64) error {
	srcLen := be.Source.Length()
	start := max64(pos, be.Offset)
	end := min64(pos+int64(len(p)), be.Offset+srcLen)
	if end <= start {
		return nil
	}

	rc, err := be.Source.Open()
	if err != nil {
		return fmt.Errorf("builder extent at offset %d: %w: %v", be.Offset, ErrSourceUnavailable, err)
	}
	defer rc.Close()

	if skip := start - be.Offset; skip > 0 {
		if _, err := io.CopyN(io.Discard, rc, skip); err != nil {
			return fmt.Errorf("builder extent at offset %d: %w: %v", be.Offset, ErrSourceUnavailable, err)
		}
	}
	if _, err := io.ReadFull(rc, p[start-pos:end-pos]); err != nil {
		return fmt.Errorf("builder extent at offset %d: %w: %v", be.Offset, ErrSourceUnavailable, err)
	}
	return nil
}

func (s *BuiltStream) WriteAt(p []byte, pos int64) (int, error) {
	return 0, fmt.Errorf("built stream write: %w", ErrUnsupportedOperation)
}

func (s *BuiltStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *BuiltStream) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("built stream write: %w", ErrUnsupportedOperation)
}

func (s *BuiltStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.length, offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *BuiltStream) Close() error { return nil }

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
