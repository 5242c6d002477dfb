package streams

import (
	"fmt"
	"io"
	"sort"

	"github.com/zxrohex/diskstream/internal/extent"
)

// StripeStream splits the logical address space into fixed-size stripes
// assigned round-robin across its children. Children must be supplied
// already permuted into interleave order: within each pass of the rotation,
// stripes visit the children in supplied order.
//
// Children need not be equal-sized. A child that has no bytes left in a
// pass drops out of the rotation for that pass and all later ones, and a
// short tail shorter than a stripe extends the child's last pass, so the
// whole of Length() stays addressable.
type StripeStream struct {
	children   []SparseStream
	stripeSize int64
	length     int64
	ownership  Ownership
	pos        int64
}

// NewStripe creates an interleaved stream over one or more children with the
// given stripe size in bytes.
func NewStripe(stripeSize int64, ownership Ownership, children ...SparseStream) (*StripeStream, error) {
	if stripeSize <= 0 {
		return nil, fmt.Errorf("stripe: invalid stripe size %d: %w", stripeSize, ErrFormat)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("stripe: no children: %w", ErrFormat)
	}
	s := &StripeStream{
		children:   children,
		stripeSize: stripeSize,
		ownership:  ownership,
	}
	for _, c := range children {
		s.length += c.Length()
	}
	return s, nil
}

// pieceLength returns how many bytes child i contributes to pass p: a full
// stripe, a shorter tail, or nothing once the child is exhausted.
func (s *StripeStream) pieceLength(i int, pass int64) int64 {
	piece := s.children[i].Length() - pass*s.stripeSize
	if piece > s.stripeSize {
		piece = s.stripeSize
	}
	if piece < 0 {
		piece = 0
	}
	return piece
}

// passStart returns the logical offset where rotation pass p begins. Every
// earlier pass consumed min(childLength, p*stripeSize) bytes of each child.
func (s *StripeStream) passStart(p int64) int64 {
	var start int64
	for _, c := range s.children {
		start += min64(c.Length(), p*s.stripeSize)
	}
	return start
}

// locate maps a logical position to its pass, owning child, position within
// that child, and the bytes left in the current piece. pos must be within
// [0, Length()).
func (s *StripeStream) locate(pos int64) (pass int64, child int, childPos, pieceRemaining int64) {
	var maxLen int64
	for _, c := range s.children {
		if c.Length() > maxLen {
			maxLen = c.Length()
		}
	}
	// Binary search for the last pass starting at or before pos.
	lo, hi := int64(0), (maxLen+s.stripeSize-1)/s.stripeSize-1
	for lo < hi {
		mid := (lo + hi) / 2
		if s.passStart(mid+1) > pos {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	pass = lo

	off := pos - s.passStart(pass)
	for i := range s.children {
		piece := s.pieceLength(i, pass)
		if piece == 0 {
			continue
		}
		if off < piece {
			return pass, i, pass*s.stripeSize + off, piece - off
		}
		off -= piece
	}
	panic(fmt.Sprintf("stripe: position %d beyond mapped passes", pos))
}

// mapPosition translates a logical position into the owning child and the
// position within it. The mapping is pure: the same logical position always
// yields the same pair.
func (s *StripeStream) mapPosition(pos int64) (child int, childPos int64) {
	_, child, childPos, _ = s.locate(pos)
	return child, childPos
}

// mapBack translates a child-relative position on child i into the logical
// address space.
func (s *StripeStream) mapBack(child int, childPos int64) int64 {
	pass := childPos / s.stripeSize
	within := childPos % s.stripeSize
	logical := s.passStart(pass)
	for j := 0; j < child; j++ {
		logical += s.pieceLength(j, pass)
	}
	return logical + within
}

func (s *StripeStream) Length() int64 { return s.length }

func (s *StripeStream) CanWrite() bool {
	for _, c := range s.children {
		if !c.CanWrite() {
			return false
		}
	}
	return true
}

func (s *StripeStream) Extents() []extent.Extent {
	var all []extent.Extent
	for i, c := range s.children {
		for _, e := range c.Extents() {
			// Split the child extent at child stripe boundaries; each piece
			// maps to one contiguous logical range.
			pos := e.Start
			for pos < e.End() {
				stripeEnd := (pos/s.stripeSize + 1) * s.stripeSize
				end := e.End()
				if stripeEnd < end {
					end = stripeEnd
				}
				all = append(all, extent.New(s.mapBack(i, pos), end-pos))
				pos = end
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return extent.Merge(all)
}

func (s *StripeStream) ExtentsInRange(start, count int64) []extent.Extent {
	return extent.Clip(s.Extents(), start, count)
}

// forEachSpan splits [pos, pos+count) at piece boundaries and invokes fn
// with each per-child sub-range in logical address order.
func (s *StripeStream) forEachSpan(pos, count int64, fn func(child SparseStream, childPos int64, off, n int) error) error {
	var done int64
	for done < count {
		_, childIdx, childPos, pieceRemaining := s.locate(pos)
		chunk := pieceRemaining
		if remaining := count - done; chunk > remaining {
			chunk = remaining
		}
		if err := fn(s.children[childIdx], childPos, int(done), int(chunk)); err != nil {
			return err
		}
		pos += chunk
		done += chunk
	}
	return nil
}

func (s *StripeStream) ReadAt(p []byte, pos int64) (int, error) {
	n, err := clampRead(pos, s.length, p)
	if err != nil {
		return 0, err
	}
	total := 0
	err = s.forEachSpan(pos, int64(n), func(child SparseStream, childPos int64, off, count int) error {
		read, err := child.ReadAt(p[off:off+count], childPos)
		total += read
		if err == io.EOF && read == count {
			return nil
		}
		return err
	})
	if err != nil {
		return total, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *StripeStream) WriteAt(p []byte, pos int64) (int, error) {
	if !s.CanWrite() {
		return 0, fmt.Errorf("stripe write: %w", ErrUnsupportedOperation)
	}
	if pos < 0 || pos+int64(len(p)) > s.length {
		return 0, fmt.Errorf("stripe write at %d: %d bytes exceed length %d",
			pos, len(p), s.length)
	}
	total := 0
	err := s.forEachSpan(pos, int64(len(p)), func(child SparseStream, childPos int64, off, count int) error {
		written, err := child.WriteAt(p[off:off+count], childPos)
		total += written
		return err
	})
	return total, err
}

func (s *StripeStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *StripeStream) Write(p []byte) (int, error) {
	n, err := s.WriteAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *StripeStream) Seek(offset int64, whence int) (int64, error) {
	next, err := seekCursor(s.pos, s.length, offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = next
	return next, nil
}

func (s *StripeStream) Close() error {
	return closeChildren(s.ownership, s.children)
}
