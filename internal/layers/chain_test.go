package layers

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/zxrohex/diskstream/internal/extent"
	"github.com/zxrohex/diskstream/internal/streams"
)

func newTestChain(t *testing.T, parentData []byte, blockSize int64) (*Chain, *MemoryLayer, *streams.BufferStream) {
	t.Helper()
	parent := streams.NewBuffer(parentData)
	child, err := NewMemoryLayer(parent.Length(), blockSize)
	if err != nil {
		t.Fatalf("NewMemoryLayer() error = %v", err)
	}
	chain, err := NewChain(child, parent, streams.OwnNone)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}
	return chain, child, parent
}

func TestChainFallsThroughToParent(t *testing.T) {
	parentData := bytes.Repeat([]byte{0xEE}, 64)
	chain, _, _ := newTestChain(t, parentData, 16)

	got := make([]byte, 64)
	if _, err := chain.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if !bytes.Equal(got, parentData) {
		t.Error("empty child should read entirely from the parent")
	}
}

func TestChainWritesLandInChildOnly(t *testing.T) {
	parentData := bytes.Repeat([]byte{0xEE}, 64)
	chain, child, parent := newTestChain(t, parentData, 16)

	// Aligned full-block write: block 1.
	payload := bytes.Repeat([]byte{0x11}, 16)
	if _, err := chain.WriteAt(payload, 16); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}

	if !bytes.Equal(parent.Bytes(), parentData) {
		t.Error("parent must never be written by the chain")
	}
	if !child.IsAllocated(1) {
		t.Error("written block should be allocated in the child")
	}
	if child.IsAllocated(0) || child.IsAllocated(2) {
		t.Error("untouched blocks should stay unallocated")
	}

	got := make([]byte, 64)
	if _, err := chain.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	want := append(append(bytes.Repeat([]byte{0xEE}, 16), payload...), bytes.Repeat([]byte{0xEE}, 32)...)
	if !bytes.Equal(got, want) {
		t.Errorf("chain view = %v, want child block over parent", got)
	}
}

func TestChainPartialWritePreservesInheritedBytes(t *testing.T) {
	parentData := bytes.Repeat([]byte{0xEE}, 64)
	chain, _, _ := newTestChain(t, parentData, 16)

	// Write 4 bytes in the middle of block 2: the rest of the grain must
	// keep the parent's content, not become zeros.
	if _, err := chain.WriteAt([]byte{1, 2, 3, 4}, 38); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}

	got := make([]byte, 16)
	if _, err := chain.ReadAt(got, 32); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	want := bytes.Repeat([]byte{0xEE}, 16)
	copy(want[6:], []byte{1, 2, 3, 4})
	if !bytes.Equal(got, want) {
		t.Errorf("block after partial write = %v, want %v", got, want)
	}
}

func TestChainExtentsUnion(t *testing.T) {
	zero := streams.NewZero(32)
	data := streams.NewBuffer(bytes.Repeat([]byte{0xEE}, 32))
	parent, err := streams.NewConcat(streams.OwnNone, zero, data)
	if err != nil {
		t.Fatalf("NewConcat() error = %v", err)
	}

	child, err := NewMemoryLayer(64, 16)
	if err != nil {
		t.Fatalf("NewMemoryLayer() error = %v", err)
	}
	chain, err := NewChain(child, parent, streams.OwnNone)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	// Allocate child block 0; parent covers [32..64).
	if _, err := chain.WriteAt(bytes.Repeat([]byte{1}, 16), 0); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}

	want := []extent.Extent{{Start: 0, Length: 16}, {Start: 32, Length: 32}}
	if got := chain.Extents(); !reflect.DeepEqual(got, want) {
		t.Errorf("Extents() = %v, want %v", got, want)
	}
}

func TestChainRejectsLengthMismatch(t *testing.T) {
	child, err := NewMemoryLayer(32, 16)
	if err != nil {
		t.Fatalf("NewMemoryLayer() error = %v", err)
	}
	if _, err := NewChain(child, streams.NewZero(64), streams.OwnNone); err == nil {
		t.Fatal("NewChain() with mismatched lengths should fail")
	}
}
