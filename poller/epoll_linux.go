//go:build linux

package poller

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	efd int
	wfd int // eventfd，用于唤醒

	mu     sync.RWMutex // 保护 wfd 在 Close 之后不再被写
	closed bool

	raw []unix.EpollEvent
}

// New 创建 epoll poller（水平触发）。
func New() (Poller, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(efd)
		return nil, err
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}
	if err := unix.EpollCtl(efd, unix.EPOLL_CTL_ADD, wfd, ev); err != nil {
		unix.Close(wfd)
		unix.Close(efd)
		return nil, err
	}
	return &epollPoller{efd: efd, wfd: wfd}, nil
}

func epollEvents(interest Interest) uint32 {
	var flag uint32
	if interest&Readable != 0 {
		flag |= unix.EPOLLIN
	}
	if interest&Writable != 0 {
		flag |= unix.EPOLLOUT
	}
	return flag
}

func (p *epollPoller) Register(fd FD, interest Interest) error {
	ev := &unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *epollPoller) Modify(fd FD, interest Interest) error {
	ev := &unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (p *epollPoller) Unregister(fd FD) error {
	return unix.EpollCtl(p.efd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wake() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wfd, buf[:])
	if err == unix.EAGAIN {
		// 计数器已满，说明唤醒尚未被消费
		return nil
	}
	return err
}

func (p *epollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	unix.Close(p.wfd)
	return unix.Close(p.efd)
}

func (p *epollPoller) Wait(events []Event, timeout time.Duration) (int, error) {
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]
	n, err := unix.EpollWait(p.efd, raw, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	out := 0
	for i := 0; i < n; i++ {
		ev := raw[i]
		fd := int(ev.Fd)
		if fd == p.wfd {
			// 清空 eventfd
			var b [8]byte
			_, _ = unix.Read(p.wfd, b[:])
			continue
		}
		var flags Flags
		if ev.Events&unix.EPOLLIN != 0 {
			flags |= FlagRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			flags |= FlagWrite
		}
		if ev.Events&unix.EPOLLERR != 0 {
			flags |= FlagError
		}
		if ev.Events&unix.EPOLLHUP != 0 {
			flags |= FlagHangup
		}
		events[out] = Event{FD: fd, Flags: flags}
		out++
	}
	return out, nil
}
