package cache

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxrohex/diskstream/internal/streams"
)

func TestBlockCacheWriteThenReadRoundTrip(t *testing.T) {
	raw := streams.NewBufferSize(1024)
	c, err := New(raw, Config{BlockSize: 64, MaxBlocks: 4}, streams.OwnNone)
	require.NoError(t, err)

	// Unaligned writes spanning block boundaries.
	writes := []struct {
		pos  int64
		data []byte
	}{
		{pos: 60, data: []byte("spans the first boundary")},
		{pos: 0, data: []byte("head")},
		{pos: 1000, data: []byte("tail of the stream below")},
		{pos: 62, data: []byte("overwrite")},
	}

	shadow := make([]byte, 1024)
	for _, w := range writes {
		_, err := c.WriteAt(w.data, w.pos)
		require.NoError(t, err)
		copy(shadow[w.pos:], w.data)
	}

	got := make([]byte, 1024)
	_, err = c.ReadAt(got, 0)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, shadow), "cached view must equal last written value for every byte")

	// The underlying stream is durable before the write returns.
	assert.True(t, bytes.Equal(raw.Bytes(), shadow), "writes must be write-through")
}

func TestBlockCacheHitsMissesEvictions(t *testing.T) {
	raw := streams.NewBufferSize(64 * 8)
	c, err := New(raw, Config{BlockSize: 64, MaxBlocks: 2}, streams.OwnNone)
	require.NoError(t, err)

	buf := make([]byte, 10)

	_, err = c.ReadAt(buf, 0) // miss, block 0
	require.NoError(t, err)
	_, err = c.ReadAt(buf, 5) // hit, block 0
	require.NoError(t, err)
	_, err = c.ReadAt(buf, 64) // miss, block 1
	require.NoError(t, err)
	_, err = c.ReadAt(buf, 128) // miss, block 2 evicts block 0
	require.NoError(t, err)
	_, err = c.ReadAt(buf, 0) // miss again after eviction
	require.NoError(t, err)

	s := c.Statistics()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(4), s.Misses)
	assert.Equal(t, int64(2), s.Evictions)
}

func TestBlockCacheFailedFillNotCached(t *testing.T) {
	raw := &flakyStream{BufferStream: streams.NewBuffer([]byte("recoverable data here"))}
	raw.failures = 1
	c, err := New(raw, Config{BlockSize: 16, MaxBlocks: 4}, streams.OwnNone)
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = c.ReadAt(buf, 0)
	require.Error(t, err, "first read should surface the fill failure")

	// The failed fill must not have been inserted as a valid block.
	_, err = c.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("reco"), buf)
	assert.Equal(t, int64(0), c.Statistics().Hits, "a failed fill must not produce later hits before a refill")
}

func TestBlockCacheExtentsPassThrough(t *testing.T) {
	zero := streams.NewZero(100)
	data := streams.NewBuffer(make([]byte, 50))
	raw, err := streams.NewConcat(streams.OwnNone, zero, data)
	require.NoError(t, err)

	c, err := New(raw, DefaultConfig(), streams.OwnNone)
	require.NoError(t, err)

	assert.Equal(t, raw.Extents(), c.Extents())
	assert.Equal(t, raw.Length(), c.Length())
}

func TestBlockCacheConfigValidation(t *testing.T) {
	raw := streams.NewBufferSize(64)

	_, err := New(raw, Config{BlockSize: 100, MaxBlocks: 4}, streams.OwnNone)
	assert.ErrorIs(t, err, streams.ErrFormat, "non power-of-two block size")

	_, err = New(raw, Config{BlockSize: 64, MaxBlocks: 0}, streams.OwnNone)
	assert.ErrorIs(t, err, streams.ErrFormat, "zero block budget")
}

func TestBlockCacheReadOnlyUnderlying(t *testing.T) {
	c, err := New(streams.NewZero(64), DefaultConfig(), streams.OwnNone)
	require.NoError(t, err)

	_, err = c.WriteAt([]byte{1}, 0)
	assert.ErrorIs(t, err, streams.ErrUnsupportedOperation)
}

// flakyStream fails the first N positional reads, then recovers.
type flakyStream struct {
	*streams.BufferStream
	failures int
}

func (f *flakyStream) ReadAt(p []byte, pos int64) (int, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("transient read failure")
	}
	return f.BufferStream.ReadAt(p, pos)
}
