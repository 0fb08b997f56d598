//go:build linux || darwin

package evloop

import (
	"context"
	"net"
)

// Server 组合监听与事件循环，提供基于 context 的启停。
type Server struct {
	cfg  Config
	loop *EventLoop
	addr net.Addr
}

// NewServer 构造未启动的 Server 实例
func NewServer(cfg Config) (*Server, error) {
	l, err := NewEventLoop(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: l.cfg, loop: l}, nil
}

// Listen 绑定 Config.Address，返回实际监听地址（":0" 时可得到分配的端口）。
func (s *Server) Listen() (net.Addr, error) {
	addr, err := s.loop.Listen(s.cfg.Address)
	if err != nil {
		return nil, err
	}
	s.addr = addr
	return addr, nil
}

// Serve 在当前 goroutine 运行事件循环，ctx 结束时停止。
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.loop.Stop()
		case <-s.loop.Done():
		}
	}()
	return s.loop.Run()
}

// Start 等价于 Listen + Serve
func (s *Server) Start(ctx context.Context) error {
	if s.addr == nil {
		if _, err := s.Listen(); err != nil {
			s.loop.Stop()
			return err
		}
	}
	return s.Serve(ctx)
}

// Stop 停止事件循环并等待其退出，ctx 到期时提前返回。
func (s *Server) Stop(ctx context.Context) error {
	s.loop.Stop()
	select {
	case <-s.loop.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr 返回监听地址，Listen 之前为 nil。
func (s *Server) Addr() net.Addr { return s.addr }

// Loop 返回底层事件循环，用于 Submit / Offload。
func (s *Server) Loop() *EventLoop { return s.loop }
