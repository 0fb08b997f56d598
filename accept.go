//go:build linux || darwin

package evloop

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/evloop/internal/netutil"
	"github.com/legamerdc/evloop/poller"
)

// acceptHandler 将监听 socket 的可读事件转换为新的受管连接。
type acceptHandler struct {
	loop *EventLoop
	fd   int
}

// OnReady 循环 accept 直到 EAGAIN：一次就绪可能对应多个排队的连接。
func (a *acceptHandler) OnReady(flags poller.Flags) {
	if flags.Error() {
		a.loop.log.Error("listener error", "fd", a.fd, "err", netutil.SocketError(a.fd))
		return
	}
	for {
		cfd, sa, err := accept(a.fd)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED, unix.EPROTO, unix.EPERM:
				// 单次失败，继续处理队列中的下一个
				a.loop.log.Warn("accept failed", "err", err)
				continue
			}
			// EMFILE/ENFILE/ENOBUFS 等资源错误：继续重试只会空转，留到下一轮
			a.loop.log.Error("accept failed", "err", err)
			return
		}
		a.loop.enroll(cfd, sa)
	}
}

// enroll 为新 socket 建立 Conn 并以 Readable 登记。
func (l *EventLoop) enroll(fd int, sa unix.Sockaddr) {
	if l.cfg.MaxConns > 0 && l.registry.Len() >= l.cfg.MaxConns {
		l.log.Warn("connection limit reached, dropping", "limit", l.cfg.MaxConns)
		_ = l.registry.closeFD(fd)
		return
	}
	_ = netutil.SetNoDelay(fd, true)
	var remote net.Addr
	if ta := netutil.SockaddrToTCPAddr(sa); ta != nil {
		remote = ta
	}
	c := newConn(fd, remote, l.cfg.RxBufferSize, l.cfg.TxBufferSize, l.now)
	c.proc = l.cfg.Process
	h := &connHandler{loop: l, conn: c}
	if _, err := l.registry.Register(c, poller.Readable, h); err != nil {
		l.log.Warn("register connection failed", "fd", fd, "err", err)
		_ = l.registry.closeFD(fd)
		return
	}
	if l.cfg.NewProcessor != nil {
		if p := l.cfg.NewProcessor(c); p != nil {
			c.proc = p
		}
	}
}
