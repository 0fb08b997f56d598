//go:build linux || darwin

package evloop

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/evloop/internal/netutil"
	"github.com/legamerdc/evloop/poller"
)

// connHandler 驱动单条连接的 READING -> WRITING -> READING 状态机。
// 所有错误在此转换为关闭连接，不会向事件循环传播。
type connHandler struct {
	loop *EventLoop
	conn *Conn
}

func (h *connHandler) OnReady(flags poller.Flags) {
	c := h.conn
	if c.state == StateClosed {
		return
	}
	if flags.Error() {
		err := netutil.SocketError(c.fd)
		if err == nil {
			err = ErrPeerClosed
		}
		h.close(fmt.Errorf("socket: %w", err))
		return
	}
	if flags.Hangup() && !flags.Readable() {
		h.close(ErrPeerClosed)
		return
	}
	switch c.state {
	case StateReading:
		if flags.Readable() {
			h.onReadable()
		}
	case StateWriting:
		if flags.Writable() {
			h.onWritable()
		}
	}
}

// onReadable 执行一次非阻塞 read。
func (h *connHandler) onReadable() {
	c := h.conn
	free := c.in.Free()
	if free == 0 {
		// Processor 始终没有消费，入站缓冲已满
		h.fail(ErrInboundOverflow)
		return
	}
	buf := h.loop.scratch
	if len(buf) > free {
		buf = buf[:free]
	}
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return
		}
		h.close(fmt.Errorf("read: %w", err))
		return
	}
	if n == 0 {
		h.close(ErrPeerClosed)
		return
	}
	_, _ = c.in.Write(buf[:n])
	c.touch(h.loop.now)
	h.process()
}

func (h *connHandler) process() {
	c := h.conn
	in := c.in.Peek(c.in.Len())
	out, consumed := c.proc.Process(h.loop.outBuf[:0], in)
	if cap(out) > cap(h.loop.outBuf) {
		// 不沿用 out：它可能引用入站缓冲
		h.loop.outBuf = make([]byte, 0, cap(out))
	}
	if consumed < 0 || consumed > len(in) {
		h.fail(fmt.Errorf("%w: %d of %d", ErrConsumedRange, consumed, len(in)))
		return
	}
	c.in.Discard(consumed)
	if len(out) > 0 {
		h.enqueue(out)
	}
}

// enqueue 追加待发送字节并切换到 WRITING。
func (h *connHandler) enqueue(p []byte) {
	c := h.conn
	if c.state == StateClosed {
		return
	}
	if _, err := c.out.Write(p); err != nil {
		h.fail(fmt.Errorf("%w: %d pending, %d more", ErrOutboundOverflow, c.out.Len(), len(p)))
		return
	}
	if c.state == StateReading {
		h.transition(StateWriting)
	}
}

// onWritable 执行一次非阻塞 write；部分写出是正常的背压，保持 WRITING。
func (h *connHandler) onWritable() {
	c := h.conn
	seg := c.out.Segment()
	if len(seg) == 0 {
		h.transition(StateReading)
		return
	}
	n, err := unix.Write(c.fd, seg)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return
		}
		h.close(fmt.Errorf("write: %w", err))
		return
	}
	c.out.Discard(n)
	c.touch(h.loop.now)
	if c.out.Len() == 0 {
		c.out.Reset()
		h.transition(StateReading)
	}
}

// transition 切换状态与关注集合：WRITING 只关注可写，READING 只关注可读。
func (h *connHandler) transition(s State) {
	c := h.conn
	interest := poller.Readable
	if s == StateWriting {
		interest = poller.Writable
	}
	if err := h.loop.registry.UpdateInterest(c.handle, interest); err != nil {
		h.close(fmt.Errorf("update interest: %w", err))
		return
	}
	if c.state == StateReading && s == StateWriting {
		c.transitions++
	}
	c.state = s
}

// fail 报告处理错误并关闭连接。
func (h *connHandler) fail(err error) {
	h.loop.obs.HandlerError(h.conn, err)
	h.close(err)
}

func (h *connHandler) close(reason error) {
	h.loop.registry.Deregister(h.conn.handle, reason)
}
