package evloop

import (
	"fmt"
	"net"
	"time"

	"github.com/legamerdc/evloop/internal/ring"
	"github.com/legamerdc/evloop/poller"
)

// Handle 标识一条连接。单调递增，不随 fd 复用。
type Handle uint64

// State 为连接处理状态机的状态。
type State uint8

const (
	StateReading State = iota
	StateWriting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Conn 为一条被管理的连接。
// 只在事件循环 goroutine 中访问；Observer 回调与 Submit 任务中读取是安全的。
type Conn struct {
	fd     int
	handle Handle
	remote net.Addr

	in  *ring.Buffer
	out *ring.Buffer // 未发送的部分即 PendingWrite

	interest    poller.Interest
	state       State
	proc        Processor
	openedAt    time.Time
	lastActive  time.Time
	transitions uint64 // READING -> WRITING 次数
	closeReason error
}

func newConn(fd int, remote net.Addr, rxSize, txSize int, now time.Time) *Conn {
	return &Conn{
		fd:         fd,
		remote:     remote,
		in:         ring.New(rxSize),
		out:        ring.New(txSize),
		state:      StateReading,
		openedAt:   now,
		lastActive: now,
	}
}

func (c *Conn) Handle() Handle                   { return c.handle }
func (c *Conn) RemoteAddr() net.Addr             { return c.remote }
func (c *Conn) State() State                     { return c.state }
func (c *Conn) Interest() poller.Interest        { return c.interest }
func (c *Conn) Transitions() uint64              { return c.transitions }
func (c *Conn) OpenedAt() time.Time              { return c.openedAt }
func (c *Conn) LastActive() time.Time            { return c.lastActive }
func (c *Conn) CloseReason() error               { return c.closeReason }
func (c *Conn) touch(now time.Time)              { c.lastActive = now }
func (c *Conn) idle(now time.Time) time.Duration { return now.Sub(c.lastActive) }

// Buffered 返回入站未处理与出站未发送的字节数。
func (c *Conn) Buffered() (inbound, outbound int) {
	if c.in != nil {
		inbound = c.in.Len()
	}
	if c.out != nil {
		outbound = c.out.Len()
	}
	return
}

func (c *Conn) release() {
	c.in = nil
	c.out = nil
	c.proc = nil
}

func (c *Conn) String() string {
	return fmt.Sprintf("conn#%d(%v)", c.handle, c.remote)
}
