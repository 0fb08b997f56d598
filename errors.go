package evloop

import (
	"errors"
	"fmt"
)

var (
	// ErrPlatformNotSupported 不支持的平台（需要 epoll 或 kqueue）
	ErrPlatformNotSupported = errors.New("evloop: platform not supported (requires epoll or kqueue)")

	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = errors.New("evloop: invalid argument")

	// ErrLoopStopped 事件循环已停止
	ErrLoopStopped = errors.New("evloop: loop stopped")

	// ErrLoopFatal 多路复用等待失败，事件循环无法继续
	ErrLoopFatal = errors.New("evloop: loop fatal")

	// ErrPeerClosed 对端关闭（EOF 或挂断）
	ErrPeerClosed = errors.New("evloop: peer closed")

	ErrIdleTimeout      = errors.New("evloop: idle timeout")
	ErrInboundOverflow  = errors.New("evloop: inbound buffer overflow")
	ErrOutboundOverflow = errors.New("evloop: outbound buffer overflow")
	ErrConsumedRange    = errors.New("evloop: processor consumed out of range")
	ErrHandlerPanic     = errors.New("evloop: handler panic")
	ErrWorkersBusy      = errors.New("evloop: workers busy")
	ErrUnknownHandle    = errors.New("evloop: unknown handle")
)

// RegistrationError 表示 poller 拒绝登记某个 socket。
type RegistrationError struct {
	FD  int
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("evloop: register fd %d: %v", e.FD, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }
