//go:build darwin

package poller

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

type kqueuePoller struct {
	kq  int
	wfd int // 写端，用于唤醒
	rfd int // 读端，注册到 kqueue

	mu     sync.RWMutex
	closed bool

	raw []unix.Kevent_t
}

// New 创建 kqueue poller（水平触发）。
func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	// 使用管道作为唤醒
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		unix.Close(kq)
		return nil, err
	}
	rfd, wfd := p[0], p[1]
	_ = unix.SetNonblock(rfd, true)
	_ = unix.SetNonblock(wfd, true)
	unix.CloseOnExec(rfd)
	unix.CloseOnExec(wfd)
	kev := unix.Kevent_t{
		Ident:  uint64(rfd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		unix.Close(rfd)
		unix.Close(wfd)
		unix.Close(kq)
		return nil, err
	}
	return &kqueuePoller{kq: kq, wfd: wfd, rfd: rfd}, nil
}

// 两个过滤器始终存在，通过 EV_ENABLE/EV_DISABLE 切换，避免删除不存在的过滤器报错
func kqueueChanges(fd FD, interest Interest) []unix.Kevent_t {
	rf := uint16(unix.EV_ADD | unix.EV_DISABLE)
	if interest&Readable != 0 {
		rf = unix.EV_ADD | unix.EV_ENABLE
	}
	wf := uint16(unix.EV_ADD | unix.EV_DISABLE)
	if interest&Writable != 0 {
		wf = unix.EV_ADD | unix.EV_ENABLE
	}
	return []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: rf},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: wf},
	}
}

func (p *kqueuePoller) Register(fd FD, interest Interest) error {
	_, err := unix.Kevent(p.kq, kqueueChanges(fd, interest), nil, nil)
	return err
}

func (p *kqueuePoller) Modify(fd FD, interest Interest) error {
	_, err := unix.Kevent(p.kq, kqueueChanges(fd, interest), nil, nil)
	return err
}

func (p *kqueuePoller) Unregister(fd FD) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Wake() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	_, err := unix.Write(p.wfd, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (p *kqueuePoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	unix.Close(p.rfd)
	unix.Close(p.wfd)
	return unix.Close(p.kq)
}

func (p *kqueuePoller) Wait(events []Event, timeout time.Duration) (int, error) {
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.Kevent_t, len(events))
	}
	raw := p.raw[:len(events)]
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	out := 0
	var buf [64]byte
	for i := 0; i < n; i++ {
		ev := raw[i]
		fd := int(ev.Ident)
		if fd == p.rfd {
			for {
				if _, rerr := unix.Read(p.rfd, buf[:]); rerr != nil {
					break
				}
			}
			continue
		}
		var flags Flags
		switch {
		case ev.Flags&unix.EV_ERROR != 0:
			flags |= FlagError
		case ev.Filter == unix.EVFILT_READ:
			// 读方向的 EOF 交给 read 返回 0 处理
			flags |= FlagRead
		case ev.Filter == unix.EVFILT_WRITE:
			flags |= FlagWrite
			if ev.Flags&unix.EV_EOF != 0 {
				flags |= FlagHangup
			}
		}
		events[out] = Event{FD: fd, Flags: flags}
		out++
	}
	return out, nil
}
