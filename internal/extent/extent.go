// Package extent provides the value algebra for contiguous byte ranges.
// Extent sequences handled here are always finite, ascending and
// non-overlapping unless a function documents otherwise; ranges not covered
// by a sequence are implicitly zero in the stream that reported it.
package extent

import "fmt"

// Extent describes a contiguous byte range in the address space of the
// stream that reports it.
type Extent struct {
	Start  int64
	Length int64
}

// New creates an extent. A negative length is a contract violation and
// panics rather than returning an error.
func New(start, length int64) Extent {
	if length < 0 {
		panic(fmt.Sprintf("extent: negative length %d at start %d", length, start))
	}
	return Extent{Start: start, Length: length}
}

// End returns the first byte position past the extent.
func (e Extent) End() int64 {
	return e.Start + e.Length
}

// Contains reports whether pos lies within the extent.
func (e Extent) Contains(pos int64) bool {
	return pos >= e.Start && pos < e.End()
}

// IsContiguous reports whether b starts exactly where e ends.
func (e Extent) IsContiguous(b Extent) bool {
	return e.End() == b.Start
}

// Overlaps reports whether the two extents share at least one byte.
func (e Extent) Overlaps(b Extent) bool {
	return e.Start < b.End() && b.Start < e.End()
}

func (e Extent) String() string {
	return fmt.Sprintf("[%d..%d)", e.Start, e.End())
}

// Merge coalesces an ascending extent sequence, joining extents that overlap
// or touch. The input slice is not modified.
func Merge(list []Extent) []Extent {
	if len(list) == 0 {
		return nil
	}
	merged := make([]Extent, 0, len(list))
	current := list[0]
	for _, e := range list[1:] {
		if e.Start <= current.End() {
			if e.End() > current.End() {
				current.Length = e.End() - current.Start
			}
			continue
		}
		merged = append(merged, current)
		current = e
	}
	return append(merged, current)
}

// Union merges two ascending extent sequences into one ascending sequence,
// coalescing overlap and adjacency.
func Union(a, b []Extent) []Extent {
	combined := make([]Extent, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Start <= b[j].Start {
			combined = append(combined, a[i])
			i++
		} else {
			combined = append(combined, b[j])
			j++
		}
	}
	combined = append(combined, a[i:]...)
	combined = append(combined, b[j:]...)
	return Merge(combined)
}

// Clip intersects an ascending extent sequence with the window
// [start, start+count).
func Clip(list []Extent, start, count int64) []Extent {
	if count < 0 {
		panic(fmt.Sprintf("extent: negative clip count %d", count))
	}
	end := start + count
	var clipped []Extent
	for _, e := range list {
		if e.End() <= start {
			continue
		}
		if e.Start >= end {
			break
		}
		s := e.Start
		if s < start {
			s = start
		}
		t := e.End()
		if t > end {
			t = end
		}
		if t > s {
			clipped = append(clipped, Extent{Start: s, Length: t - s})
		}
	}
	return clipped
}

// Gaps returns the ranges within [start, start+count) not covered by the
// ascending sequence list.
func Gaps(list []Extent, start, count int64) []Extent {
	end := start + count
	var gaps []Extent
	pos := start
	for _, e := range Clip(list, start, count) {
		if e.Start > pos {
			gaps = append(gaps, Extent{Start: pos, Length: e.Start - pos})
		}
		pos = e.End()
	}
	if pos < end {
		gaps = append(gaps, Extent{Start: pos, Length: end - pos})
	}
	return gaps
}

// Offset shifts every extent in the sequence by delta, returning a new slice.
func Offset(list []Extent, delta int64) []Extent {
	if len(list) == 0 {
		return nil
	}
	shifted := make([]Extent, len(list))
	for i, e := range list {
		shifted[i] = Extent{Start: e.Start + delta, Length: e.Length}
	}
	return shifted
}

// TotalLength sums the lengths of all extents in the sequence.
func TotalLength(list []Extent) int64 {
	var total int64
	for _, e := range list {
		total += e.Length
	}
	return total
}
