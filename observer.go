package evloop

import (
	"context"
	"errors"
	"log/slog"
)

// Observer 接收连接生命周期事件。
// 所有回调都在事件循环 goroutine 中同步调用，不得阻塞。
type Observer interface {
	ConnectionOpened(c *Conn)
	ConnectionClosed(c *Conn, reason error)
	HandlerError(c *Conn, cause error)
}

// NopObserver 丢弃所有事件。
type NopObserver struct{}

func (NopObserver) ConnectionOpened(*Conn)        {}
func (NopObserver) ConnectionClosed(*Conn, error) {}
func (NopObserver) HandlerError(*Conn, error)     {}

// LogObserver 将事件写为结构化日志。
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) ConnectionOpened(c *Conn) {
	o.logger().Debug("connection_opened", "conn", uint64(c.Handle()), "remote", c.RemoteAddr())
}

func (o LogObserver) ConnectionClosed(c *Conn, reason error) {
	level := slog.LevelInfo
	if reason == nil || errors.Is(reason, ErrPeerClosed) || errors.Is(reason, ErrLoopStopped) {
		level = slog.LevelDebug
	}
	o.logger().Log(context.Background(), level, "connection_closed", "conn", uint64(c.Handle()), "remote", c.RemoteAddr(), "reason", reason)
}

func (o LogObserver) HandlerError(c *Conn, cause error) {
	o.logger().Warn("handler_error", "conn", uint64(c.Handle()), "remote", c.RemoteAddr(), "cause", cause)
}
