// Package streams defines the sparse stream contract and the composition
// operators that assemble one logical byte stream out of several: bounded
// sub-streams, concatenation, striping, mirroring and extent-built streams.
//
// A sparse stream is byte-addressable; ranges not reported by Extents read
// as zero. Every instance owns exactly one cursor. Concurrent use of one
// instance requires external synchronization.
package streams

import (
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/extent"
)

// SparseStream is the capability every byte source in this module exposes.
// Positional access through ReadAt/WriteAt does not touch the cursor used by
// Read/Write/Seek.
type SparseStream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Length returns the total addressable size in bytes.
	Length() int64

	// Extents returns the ascending, non-overlapping byte ranges that are
	// not implicitly zero, in the stream's own address space.
	Extents() []extent.Extent

	// ExtentsInRange returns Extents clipped to [start, start+count).
	ExtentsInRange(start, count int64) []extent.Extent

	// CanWrite reports whether Write/WriteAt are supported.
	CanWrite() bool
}

// Ownership controls whether a composition operator closes its child streams
// when it is itself closed.
type Ownership int

const (
	// OwnNone leaves child lifetime with the caller.
	OwnNone Ownership = iota

	// OwnChildren transfers child lifetime to the operator; Close on the
	// operator closes every child.
	OwnChildren
)

// seekCursor computes the new cursor position for a Seek call against a
// stream of the given length.
func seekCursor(current, length, offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = current + offset
	case io.SeekEnd:
		next = length + offset
	default:
		return current, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return current, fmt.Errorf("seek: negative position %d", next)
	}
	return next, nil
}

// closeChildren closes every child when the operator owns them, returning
// the first error encountered.
func closeChildren(ownership Ownership, children []SparseStream) error {
	if ownership != OwnChildren {
		return nil
	}
	var firstErr error
	for _, c := range children {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// zeroFill writes zero bytes over p.
func zeroFill(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// clampRead bounds a positional read request to the stream length. It
// returns the number of bytes that can be served and io.EOF when the
// request starts at or past the end.
func clampRead(pos, length int64, p []byte) (int, error) {
	if pos < 0 {
		return 0, fmt.Errorf("read: negative position %d", pos)
	}
	if pos >= length {
		return 0, io.EOF
	}
	n := len(p)
	if remaining := length - pos; int64(n) > remaining {
		n = int(remaining)
	}
	return n, nil
}
