package streams

import (
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/extent"
)

// BufferStream is a memory-backed sparse stream of fixed length. The whole
// buffer counts as one extent; there is no hole tracking below that.
type BufferStream struct {
	data []byte
	pos  int64
}

// NewBuffer wraps existing bytes in a writable stream. The stream aliases
// the slice; it does not copy.
func NewBuffer(data []byte) *BufferStream {
	return &BufferStream{data: data}
}

// NewBufferSize allocates a zeroed writable stream of the given length.
func NewBufferSize(length int64) *BufferStream {
	if length < 0 {
		panic(fmt.Sprintf("streams: negative buffer length %d", length))
	}
	return &BufferStream{data: make([]byte, length)}
}

// Bytes exposes the backing slice.
func (s *BufferStream) Bytes() []byte { return s.data }

func (s *BufferStream) Length() int64 { return int64(len(s.data)) }

func (s *BufferStream) CanWrite() bool { return true }

func (s *BufferStream) Extents() []extent.Extent {
	if len(s.data) == 0 {
		return nil
	}
	return []extent.Extent{extent.New(0, int64(len(s.data)))}
}

func (s *BufferStream) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(s.Extents(), start, count)
}

func (s *BufferStream) ReadAt(p []byte, pos int64) (int, error) {
	n, err := clampRead(pos, s.Length(), p)
	if err != nil {
		return 0, err
	}
	copy(p[:n], s.data[pos:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *BufferStream) WriteAt(p []byte, pos int64) (int, error) {
	if pos < 0 {
		return 0, fmt.Errorf("buffer write: negative position %d", pos)
	}
	if pos+int64(len(p)) > s.Length() {
		return 0, fmt.Errorf("buffer write at %d: %d bytes exceed length %d",
			pos, len(p), s.Length())
	}
	copy(s.data[pos:], p)
	return len(p), nil
}

func (s *BufferStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *BufferStream) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *BufferStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.Length(), offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *BufferStream) Close() error { return nil }
