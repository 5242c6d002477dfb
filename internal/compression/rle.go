package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zxrohex/diskstream/internal/streams"
)

// RLEReader decodes run-length encoded input: a sequence of (count, value)
// byte pairs, each expanding to count copies of value. Decoding is strictly
// sequential; Seek may only move forward. Seeking backward returns an
// access-order error because already-decoded output is not retained.
type RLEReader struct {
	src        *bytes.Reader
	decodedLen int64
	pos        int64

	runRemaining int64
	runValue     byte
}

// NewRLEReader creates a sequential decoder over the encoded pairs with the
// declared decoded length.
func NewRLEReader(encoded []byte, decodedLen int64) *RLEReader {
	return &RLEReader{src: bytes.NewReader(encoded), decodedLen: decodedLen}
}

// DecodedLength returns the declared decoded size.
func (r *RLEReader) DecodedLength() int64 { return r.decodedLen }

func (r *RLEReader) Read(p []byte) (int, error) {
	if r.pos >= r.decodedLen {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) && r.pos < r.decodedLen {
		if r.runRemaining == 0 {
			if err := r.nextRun(); err != nil {
				return total, err
			}
		}
		chunk := int64(len(p) - total)
		if chunk > r.runRemaining {
			chunk = r.runRemaining
		}
		if remaining := r.decodedLen - r.pos; chunk > remaining {
			chunk = remaining
		}
		for i := int64(0); i < chunk; i++ {
			p[total+int(i)] = r.runValue
		}
		total += int(chunk)
		r.pos += chunk
		r.runRemaining -= chunk
	}
	return total, nil
}

// nextRun loads the next (count, value) pair.
func (r *RLEReader) nextRun() error {
	count, err := r.src.ReadByte()
	if err != nil {
		return fmt.Errorf("rle: truncated input at decoded offset %d: %w", r.pos, streams.ErrCorruptData)
	}
	value, err := r.src.ReadByte()
	if err != nil {
		return fmt.Errorf("rle: run without value at decoded offset %d: %w", r.pos, streams.ErrCorruptData)
	}
	if count == 0 {
		return fmt.Errorf("rle: zero-length run at decoded offset %d: %w", r.pos, streams.ErrCorruptData)
	}
	r.runRemaining = int64(count)
	r.runValue = value
	return nil
}

// Seek supports forward movement only: the target is reached by decoding and
// discarding. A backward target fails with ErrUnsupportedOperation.
func (r *RLEReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = r.decodedLen + offset
	default:
		return r.pos, fmt.Errorf("rle seek: invalid whence %d", whence)
	}
	if target < r.pos {
		return r.pos, fmt.Errorf("rle seek: backward from %d to %d: %w",
			r.pos, target, streams.ErrUnsupportedOperation)
	}
	discard := make([]byte, 4096)
	for r.pos < target {
		chunk := target - r.pos
		if chunk > int64(len(discard)) {
			chunk = int64(len(discard))
		}
		n, err := r.Read(discard[:chunk])
		if n == 0 && err != nil {
			return r.pos, err
		}
	}
	return r.pos, nil
}

// Close satisfies io.ReadCloser so an RLEReader can serve as an opened
// builder extent source.
func (r *RLEReader) Close() error { return nil }

// RLESource exposes run-length encoded bytes as a ByteSource.
type RLESource struct {
	// Encoded holds the (count, value) pairs.
	Encoded []byte

	// DecodedLength is the decoded size declared by the metadata.
	DecodedLength int64
}

// Open returns a fresh sequential decoder.
func (s RLESource) Open() (io.ReadCloser, error) {
	return NewRLEReader(s.Encoded, s.DecodedLength), nil
}

// Length returns the declared decoded size.
func (s RLESource) Length() int64 { return s.DecodedLength }
