// Package client 提供阻塞式的字节流客户端，用于与 evloop 服务端交互。
package client

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// Handler 接收客户端事件，均在读 goroutine 中按顺序调用。
// OnData 的 p 只在回调期间有效。
type Handler interface {
	OnOpen(c *Client)
	OnData(c *Client, p []byte)
	OnClose(c *Client, err error)
}

type Client struct {
	conn net.Conn
	mu   sync.Mutex
	done chan struct{}
}

// Dial 建立连接并启动读循环。
func Dial(network, address string, h Handler) (*Client, error) {
	return DialTimeout(network, address, 0, h)
}

// DialTimeout 与 Dial 相同，timeout 为 0 表示不限。
func DialTimeout(network, address string, timeout time.Duration, h Handler) (*Client, error) {
	nc, err := net.DialTimeout(network, address, timeout)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: nc, done: make(chan struct{})}
	go c.readLoop(h)
	return c, nil
}

func (c *Client) readLoop(h Handler) {
	defer close(c.done)
	h.OnOpen(c)
	buf := make([]byte, 64<<10)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			h.OnData(c, buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			h.OnClose(c, err)
			return
		}
	}
}

// Write 写出全部字节，可并发调用。
func (c *Client) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(p)
	return err
}

// CloseWrite 关闭写方向，对端会读到 EOF。
func (c *Client) CloseWrite() error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	return c.conn.Close()
}

func (c *Client) Close() error { return c.conn.Close() }

// Done 在读循环退出（OnClose 返回）后关闭。
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }
