package streams

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/zxrohex/diskstream/internal/extent"
)

func TestConcatReadEqualsChildConcatenation(t *testing.T) {
	children := [][]byte{
		[]byte("alpha"),
		[]byte("beta-beta"),
		[]byte("g"),
	}

	var streamsIn []SparseStream
	var want []byte
	for _, c := range children {
		streamsIn = append(streamsIn, NewBuffer(c))
		want = append(want, c...)
	}

	concat, err := NewConcat(OwnNone, streamsIn...)
	if err != nil {
		t.Fatalf("NewConcat() error = %v", err)
	}
	if concat.Length() != int64(len(want)) {
		t.Fatalf("Length() = %d, want %d", concat.Length(), len(want))
	}

	got := make([]byte, len(want))
	if _, err := io.ReadFull(concat, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("concat read = %q, want %q", got, want)
	}
}

func TestConcatReadAtSpansChildren(t *testing.T) {
	concat, err := NewConcat(OwnNone, NewBuffer([]byte("0123")), NewBuffer([]byte("4567")))
	if err != nil {
		t.Fatalf("NewConcat() error = %v", err)
	}

	tests := []struct {
		name string
		pos  int64
		n    int
		want string
	}{
		{name: "Within first child", pos: 1, n: 2, want: "12"},
		{name: "Across the boundary", pos: 2, n: 4, want: "2345"},
		{name: "Within second child", pos: 5, n: 3, want: "567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.n)
			n, err := concat.ReadAt(buf, tt.pos)
			if err != nil && err != io.EOF {
				t.Fatalf("ReadAt() error = %v", err)
			}
			if string(buf[:n]) != tt.want {
				t.Errorf("ReadAt(%d) = %q, want %q", tt.pos, buf[:n], tt.want)
			}
		})
	}
}

func TestConcatWriteDelegates(t *testing.T) {
	a := NewBufferSize(4)
	b := NewBufferSize(4)
	concat, err := NewConcat(OwnNone, a, b)
	if err != nil {
		t.Fatalf("NewConcat() error = %v", err)
	}

	if _, err := concat.WriteAt([]byte("wxyz"), 2); err != nil {
		t.Fatalf("WriteAt() error = %v", err)
	}
	if !bytes.Equal(a.Bytes(), []byte{0, 0, 'w', 'x'}) {
		t.Errorf("first child = %v, want trailing wx", a.Bytes())
	}
	if !bytes.Equal(b.Bytes(), []byte{'y', 'z', 0, 0}) {
		t.Errorf("second child = %v, want leading yz", b.Bytes())
	}
}

func TestConcatExtentsShifted(t *testing.T) {
	zero := NewZero(10)
	buf := NewBuffer([]byte("abcde"))
	concat, err := NewConcat(OwnNone, zero, buf)
	if err != nil {
		t.Fatalf("NewConcat() error = %v", err)
	}

	want := []extent.Extent{{Start: 10, Length: 5}}
	if got := concat.Extents(); !reflect.DeepEqual(got, want) {
		t.Errorf("Extents() = %v, want %v", got, want)
	}
}

func TestConcatRejectsNoChildren(t *testing.T) {
	if _, err := NewConcat(OwnNone); err == nil {
		t.Fatal("NewConcat() with no children should fail")
	}
}

func TestConcatReadOnlyChildBlocksWrite(t *testing.T) {
	concat, err := NewConcat(OwnNone, NewBufferSize(4), NewZero(4))
	if err != nil {
		t.Fatalf("NewConcat() error = %v", err)
	}
	if concat.CanWrite() {
		t.Error("CanWrite() should be false with a read-only child")
	}
	if _, err := concat.WriteAt([]byte{1}, 0); err == nil {
		t.Error("WriteAt() should fail with a read-only child")
	}
}
