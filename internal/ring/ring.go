// Package ring 提供连接的入站/出站缓冲。
//
// 入站缓冲保存已读入但 Processor 尚未消费的字节，出站缓冲保存尚未写出的字节。
// 两者都在事件循环 goroutine 中使用，不加锁。
package ring

import (
	"errors"
)

var ErrTooLarge = errors.New("ring: write too large")

// Buffer 为定长环形缓冲，容量为 2 的幂。
// readPos/writePos 单调递增，下标取 pos & mask；缓冲变空时两者归零，
// 之后的写入从头开始，出站数据因此大多可一次 write 写出。
type Buffer struct {
	buf      []byte
	mask     int
	readPos  int
	writePos int
}

// New 返回容量不小于 capacity 的缓冲。
func New(capacity int) *Buffer {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Buffer{buf: make([]byte, size), mask: size - 1}
}

func (b *Buffer) Cap() int  { return len(b.buf) }
func (b *Buffer) Len() int  { return b.writePos - b.readPos }
func (b *Buffer) Free() int { return len(b.buf) - b.Len() }

// Write 追加 p；空间不足时整体拒绝，返回 ErrTooLarge。
func (b *Buffer) Write(p []byte) (int, error) {
	n := len(p)
	if n > b.Free() {
		return 0, ErrTooLarge
	}
	off := b.writePos & b.mask
	k := copy(b.buf[off:], p)
	copy(b.buf, p[k:]) // 回绕部分
	b.writePos += n
	return n, nil
}

// Peek 返回前 n 个未读字节（n 超过 Len 时取 Len），不移动读指针。
// 数据连续时返回内部视图，仅在下次修改缓冲前有效；回绕时返回拷贝。
func (b *Buffer) Peek(n int) []byte {
	if n > b.Len() {
		n = b.Len()
	}
	if n <= 0 {
		return nil
	}
	off := b.readPos & b.mask
	if off+n <= len(b.buf) {
		return b.buf[off : off+n]
	}
	out := make([]byte, n)
	k := copy(out, b.buf[off:])
	copy(out[k:], b.buf[:n-k])
	return out
}

// Segment 返回从读指针开始的最长连续片段，不拷贝，用于直接交给 write。
func (b *Buffer) Segment() []byte {
	ln := b.Len()
	if ln == 0 {
		return nil
	}
	off := b.readPos & b.mask
	end := off + ln
	if end > len(b.buf) {
		end = len(b.buf)
	}
	return b.buf[off:end]
}

// Discard 丢弃最多 n 个未读字节，返回实际丢弃数；读空后复位。
func (b *Buffer) Discard(n int) int {
	if n > b.Len() {
		n = b.Len()
	}
	b.readPos += n
	if b.readPos == b.writePos {
		b.Reset()
	}
	return n
}

// Reset 清空缓冲。
func (b *Buffer) Reset() { b.readPos, b.writePos = 0, 0 }
