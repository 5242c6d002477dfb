package streams

import (
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/extent"
)

// ZeroStream is a read-only stream of the given length with no extents;
// every position reads as zero.
type ZeroStream struct {
	length int64
	pos    int64
}

// NewZero creates a zero stream of the given length.
func NewZero(length int64) *ZeroStream {
	if length < 0 {
		panic(fmt.Sprintf("streams: negative zero stream length %d", length))
	}
	return &ZeroStream{length: length}
}

func (s *ZeroStream) Length() int64 { return s.length }

func (s *ZeroStream) CanWrite() bool { return false }

func (s *ZeroStream) Extents() []extent.Extent { return nil }

func (s *ZeroStream) ExtentsInRange(start, count int64) []extent.Extent { return nil }

func (s *ZeroStream) ReadAt(p []byte, pos int64) (int, error) {
	n, err := clampRead(pos, s.length, p)
	if err != nil {
		return 0, err
	}
	zeroFill(p[:n])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *ZeroStream) WriteAt(p []byte, pos int64) (int, error) {
	return 0, fmt.Errorf("zero stream write: %w", ErrUnsupportedOperation)
}

func (s *ZeroStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *ZeroStream) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("zero stream write: %w", ErrUnsupportedOperation)
}

func (s *ZeroStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.length, offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *ZeroStream) Close() error { return nil }
