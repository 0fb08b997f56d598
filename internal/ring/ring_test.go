package ring

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestNewRoundsUpToPowerOfTwo(t *testing.T) {
	for in, want := range map[int]int{0: 1, 1: 1, 3: 4, 1000: 1024, 4096: 4096} {
		if got := New(in).Cap(); got != want {
			t.Errorf("New(%d).Cap() = %d, want %d", in, got, want)
		}
	}
}

func TestWriteTooLarge(t *testing.T) {
	b := New(8)
	if _, err := b.Write(make([]byte, 6)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := b.Write(make([]byte, 3)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if b.Len() != 6 {
		t.Fatalf("failed write changed length: %d", b.Len())
	}
}

func TestWrapAround(t *testing.T) {
	b := New(8)
	_, _ = b.Write([]byte("abcdef"))
	if n := b.Discard(4); n != 4 {
		t.Fatalf("discard = %d", n)
	}
	// 写指针越过尾部
	if _, err := b.Write([]byte("ghijk")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := b.Peek(b.Len()); !bytes.Equal(got, []byte("efghijk")) {
		t.Fatalf("peek = %q", got)
	}
	seg := b.Segment()
	if !bytes.Equal(seg, []byte("efgh")) {
		t.Fatalf("segment = %q", seg)
	}
	b.Discard(len(seg))
	if got := b.Segment(); !bytes.Equal(got, []byte("ijk")) {
		t.Fatalf("second segment = %q", got)
	}
}

func TestDiscardAllResets(t *testing.T) {
	b := New(8)
	_, _ = b.Write([]byte("abcdef"))
	b.Discard(100)
	if b.Len() != 0 || b.Free() != 8 {
		t.Fatalf("len=%d free=%d after full discard", b.Len(), b.Free())
	}
	if seg := b.Segment(); seg != nil {
		t.Fatalf("segment of empty buffer = %q", seg)
	}
	// 复位后可写满整个容量且不分段
	_, _ = b.Write([]byte("12345678"))
	if got := b.Segment(); len(got) != 8 {
		t.Fatalf("segment len = %d, want 8", len(got))
	}
}

func TestPeekAcrossEnd(t *testing.T) {
	b := New(8)
	_, _ = b.Write([]byte("012345"))
	b.Discard(6) // 读空复位
	_, _ = b.Write([]byte("abcdef"))
	b.Discard(6)
	_, _ = b.Write([]byte("xyz")) // 复位后从头写
	if got := b.Peek(3); string(got) != "xyz" {
		t.Fatalf("peek = %q", got)
	}

	// 读指针靠近尾部且缓冲写满
	b = New(8)
	_, _ = b.Write([]byte("012345"))
	b.Discard(6)
	_, _ = b.Write([]byte("01234567"))
	b.Discard(6)
	_, _ = b.Write([]byte("ABCDEF"))
	if b.Len() != 8 {
		t.Fatalf("len = %d, want 8", b.Len())
	}
	if got := b.Peek(8); string(got) != "67ABCDEF" {
		t.Fatalf("peek = %q, want 67ABCDEF", got)
	}
}

func TestInterleavedMatchesSlice(t *testing.T) {
	b := New(16)
	var model []byte
	rnd := rand.New(rand.NewSource(7))
	next := byte(0)
	for i := 0; i < 10000; i++ {
		if rnd.Intn(2) == 0 {
			p := make([]byte, rnd.Intn(b.Free()+1))
			for j := range p {
				p[j] = next
				next++
			}
			if _, err := b.Write(p); err != nil {
				t.Fatalf("write %d with free %d: %v", len(p), b.Free(), err)
			}
			model = append(model, p...)
		} else {
			n := b.Discard(rnd.Intn(b.Len() + 1))
			model = model[n:]
		}
		if got := b.Peek(b.Len()); !bytes.Equal(got, model) {
			t.Fatalf("step %d: peek = %v, want %v", i, got, model)
		}
	}
}
