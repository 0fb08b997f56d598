// Package poller 封装操作系统的就绪事件多路复用（Linux epoll / Darwin kqueue）。
package poller

import (
	"errors"
	"time"
)

// FD 表示文件描述符。
type FD = int

// Interest 为关注的事件集合。
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable

	None Interest = 0
)

func (i Interest) String() string {
	switch i {
	case None:
		return "none"
	case Readable:
		return "read"
	case Writable:
		return "write"
	case Readable | Writable:
		return "read|write"
	}
	return "invalid"
}

// Flags 为一次就绪通知携带的标志。
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagError
	FlagHangup
)

func (f Flags) Readable() bool { return f&FlagRead != 0 }
func (f Flags) Writable() bool { return f&FlagWrite != 0 }
func (f Flags) Error() bool    { return f&FlagError != 0 }
func (f Flags) Hangup() bool   { return f&FlagHangup != 0 }

// Event 为 Wait 返回的就绪事件。
type Event struct {
	FD    FD
	Flags Flags
}

// ErrClosed poller 已关闭。
var ErrClosed = errors.New("poller: closed")

// Poller 提供注册与等待。
// 除 Wake 外的方法都只能在事件循环所在的 goroutine 中调用。
type Poller interface {
	Register(fd FD, interest Interest) error
	Modify(fd FD, interest Interest) error
	Unregister(fd FD) error
	// Wait 阻塞至有事件、被唤醒或超时；timeout < 0 表示无限等待。
	// 被信号中断时返回 0, nil。唤醒事件不会出现在结果中。
	Wait(events []Event, timeout time.Duration) (int, error)
	// Wake 可在任意 goroutine 调用，使阻塞中的 Wait 立即返回。
	Wake() error
	Close() error
}

func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}
