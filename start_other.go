//go:build !linux && !darwin

package evloop

import (
	"context"
	"net"
	"time"
)

// EventLoop 在非 epoll/kqueue 平台不可用。
type EventLoop struct{}

// NewEventLoop 在不支持的平台返回占位错误，保证编译通过
func NewEventLoop(cfg Config) (*EventLoop, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return nil, ErrPlatformNotSupported
}

func (l *EventLoop) Listen(string) (net.Addr, error) { return nil, ErrPlatformNotSupported }
func (l *EventLoop) Run() error                      { return ErrPlatformNotSupported }
func (l *EventLoop) Stop()                           {}
func (l *EventLoop) Submit(func()) error             { return ErrPlatformNotSupported }
func (l *EventLoop) ConnCount() int64                { return 0 }
func (l *EventLoop) IdleTimeout() time.Duration      { return 0 }
func (l *EventLoop) SetIdleTimeout(time.Duration)    {}

func (l *EventLoop) Offload(Handle, func(ctx context.Context) ([]byte, error)) error {
	return ErrPlatformNotSupported
}

// Done 返回已关闭的 channel。
func (l *EventLoop) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type Server struct{}

func NewServer(cfg Config) (*Server, error) {
	_, err := NewEventLoop(cfg)
	return nil, err
}

func (s *Server) Listen() (net.Addr, error)       { return nil, ErrPlatformNotSupported }
func (s *Server) Serve(ctx context.Context) error { return ErrPlatformNotSupported }
func (s *Server) Start(ctx context.Context) error { return ErrPlatformNotSupported }
func (s *Server) Stop(ctx context.Context) error  { return nil }
func (s *Server) Addr() net.Addr                  { return nil }
func (s *Server) Loop() *EventLoop                { return nil }
