//go:build linux || darwin

// Package netutil 封装监听 socket 的创建与常用 socket 选项。
package netutil

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/sys/unix"
)

// Listen 创建非阻塞的 TCP 监听 socket，返回 fd 与实际绑定的地址。
func Listen(network, address string, backlog int, reusePort bool) (int, net.Addr, error) {
	if network == "" {
		network = "tcp"
	}
	if !strings.HasPrefix(network, "tcp") {
		return -1, nil, fmt.Errorf("netutil: unsupported network %q", network)
	}
	addr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return -1, nil, err
	}
	fam := unix.AF_INET
	if strings.HasSuffix(network, "6") || (addr.IP != nil && addr.IP.To4() == nil) {
		fam = unix.AF_INET6
	}
	fd, err := unix.Socket(fam, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(fd)
	_ = SetReuseAddr(fd, true)
	if reusePort {
		_ = SetReusePort(fd, true)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	var sa unix.Sockaddr
	if fam == unix.AF_INET6 {
		var sa6 unix.SockaddrInet6
		if addr.IP != nil {
			copy(sa6.Addr[:], addr.IP.To16())
		}
		sa6.Port = addr.Port
		sa = &sa6
	} else {
		var sa4 unix.SockaddrInet4
		if addr.IP != nil {
			copy(sa4.Addr[:], addr.IP.To4())
		}
		sa4.Port = addr.Port
		sa = &sa4
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	return fd, SockaddrToTCPAddr(bound), nil
}

// SockaddrToTCPAddr 转换为 *net.TCPAddr；未知类型返回 nil。
func SockaddrToTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), Port: a.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	}
	return nil
}

// SocketError 读取并清除 SO_ERROR。
func SocketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

func boolInt(enable bool) int {
	if enable {
		return 1
	}
	return 0
}

func SetReusePort(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolInt(enable))
}

func SetReuseAddr(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolInt(enable))
}

func SetNoDelay(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolInt(enable))
}
