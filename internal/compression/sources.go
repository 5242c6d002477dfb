// Package compression adapts codec collaborators to the ByteSource
// capability consumed by built streams: given compressed bytes, produce a
// decompressed byte stream on demand.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/zxrohex/diskstream/internal/streams"
)

// MemorySource is a plain in-memory byte source.
type MemorySource []byte

// Open returns a reader over the raw bytes.
func (m MemorySource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m)), nil
}

// Length returns the byte count.
func (m MemorySource) Length() int64 { return int64(len(m)) }

// ZlibSource decodes a zlib payload lazily on Open.
type ZlibSource struct {
	// Compressed is the zlib stream as stored on disk.
	Compressed []byte

	// DecodedLength is the decompressed size declared by the metadata.
	DecodedLength int64
}

// Open returns a streaming zlib decoder over the payload. Header validation
// failures surface here; data corruption mid-stream surfaces from Read.
func (z ZlibSource) Open() (io.ReadCloser, error) {
	r, err := zlib.NewReader(bytes.NewReader(z.Compressed))
	if err != nil {
		return nil, fmt.Errorf("zlib source: %w: %v", streams.ErrCorruptData, err)
	}
	return r, nil
}

// Length returns the declared decompressed size.
func (z ZlibSource) Length() int64 { return z.DecodedLength }

// LZ4Source decodes an lz4 block on Open. Block decoding is not streamable,
// so the whole run is materialized per open; runs are bounded by the
// filesystem's extent size.
type LZ4Source struct {
	// Compressed is the raw lz4 block as stored on disk.
	Compressed []byte

	// DecodedLength is the decompressed size declared by the metadata.
	DecodedLength int64
}

// Open decompresses the block and returns a reader over the result.
func (l LZ4Source) Open() (io.ReadCloser, error) {
	decoded := make([]byte, l.DecodedLength)
	n, err := lz4.UncompressBlock(l.Compressed, decoded)
	if err != nil {
		return nil, fmt.Errorf("lz4 source: %w: %v", streams.ErrCorruptData, err)
	}
	if int64(n) != l.DecodedLength {
		return nil, fmt.Errorf("lz4 source: decoded %d bytes, declared %d: %w",
			n, l.DecodedLength, streams.ErrCorruptData)
	}
	return io.NopCloser(bytes.NewReader(decoded)), nil
}

// Length returns the declared decompressed size.
func (l LZ4Source) Length() int64 { return l.DecodedLength }
