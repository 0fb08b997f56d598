//go:build linux || darwin

package evloop

import (
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/evloop/poller"
)

type entry struct {
	fd      int
	conn    *Conn // 监听 socket 为 nil
	handler Handler
}

// Registry 维护 fd / Handle 到连接与 Handler 的映射，以及 poller 中的关注集合。
// 除 ConnCount 外的方法只能在事件循环 goroutine 中调用。
type Registry struct {
	poller poller.Poller
	obs    Observer

	byFD     map[int]*entry
	byHandle map[Handle]*entry
	next     Handle

	live    atomic.Int64
	closeFD func(fd int) error
}

func newRegistry(p poller.Poller, obs Observer) *Registry {
	return &Registry{
		poller:   p,
		obs:      obs,
		byFD:     make(map[int]*entry),
		byHandle: make(map[Handle]*entry),
		closeFD:  unix.Close,
	}
}

// Register 登记一条新连接并以 interest 加入 poller，成功后通知 ConnectionOpened。
func (r *Registry) Register(c *Conn, interest poller.Interest, h Handler) (Handle, error) {
	if c == nil || h == nil {
		return 0, ErrInvalidArgument
	}
	if err := r.poller.Register(c.fd, interest); err != nil {
		return 0, &RegistrationError{FD: c.fd, Err: err}
	}
	r.next++
	c.handle = r.next
	c.interest = interest
	e := &entry{fd: c.fd, conn: c, handler: h}
	r.byFD[c.fd] = e
	r.byHandle[c.handle] = e
	r.live.Inc()
	r.obs.ConnectionOpened(c)
	return c.handle, nil
}

// UpdateInterest 修改连接的关注集合；未变化时不触发系统调用。
func (r *Registry) UpdateInterest(h Handle, interest poller.Interest) error {
	e, ok := r.byHandle[h]
	if !ok {
		return ErrUnknownHandle
	}
	if e.conn.interest == interest {
		return nil
	}
	if err := r.poller.Modify(e.fd, interest); err != nil {
		return err
	}
	e.conn.interest = interest
	return nil
}

// Deregister 移出 poller、关闭 socket 并释放缓冲。
// 对同一 Handle 的重复调用不做任何事并返回 false。
func (r *Registry) Deregister(h Handle, reason error) bool {
	e, ok := r.byHandle[h]
	if !ok {
		return false
	}
	delete(r.byHandle, h)
	if cur, ok := r.byFD[e.fd]; ok && cur == e {
		delete(r.byFD, e.fd)
	}
	_ = r.poller.Unregister(e.fd)
	_ = r.closeFD(e.fd)
	c := e.conn
	c.state = StateClosed
	c.closeReason = reason
	c.release()
	r.live.Dec()
	r.obs.ConnectionClosed(c, reason)
	return true
}

// Lookup 返回仍存活的连接。
func (r *Registry) Lookup(h Handle) (*Conn, bool) {
	e, ok := r.byHandle[h]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Len 返回存活连接数（不含监听 socket）。
func (r *Registry) Len() int { return len(r.byHandle) }

// ConnCount 与 Len 相同，但可在任意 goroutine 调用。
func (r *Registry) ConnCount() int64 { return r.live.Load() }

// Range 遍历存活连接，fn 返回 false 时停止。fn 中不得登记或注销连接。
func (r *Registry) Range(fn func(c *Conn) bool) {
	for _, e := range r.byHandle {
		if !fn(e.conn) {
			return
		}
	}
}

func (r *Registry) handlerFor(fd int) (*entry, bool) {
	e, ok := r.byFD[fd]
	return e, ok
}

func (r *Registry) handlerOf(h Handle) (Handler, bool) {
	e, ok := r.byHandle[h]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

func (r *Registry) attachListener(fd int, h Handler) error {
	if err := r.poller.Register(fd, poller.Readable); err != nil {
		return &RegistrationError{FD: fd, Err: err}
	}
	r.byFD[fd] = &entry{fd: fd, handler: h}
	return nil
}

func (r *Registry) closeListeners() {
	for fd, e := range r.byFD {
		if e.conn != nil {
			continue
		}
		delete(r.byFD, fd)
		_ = r.poller.Unregister(fd)
		_ = r.closeFD(fd)
	}
}

// closeAll 关闭全部连接。
func (r *Registry) closeAll(reason error) {
	handles := make([]Handle, 0, len(r.byHandle))
	for h := range r.byHandle {
		handles = append(handles, h)
	}
	for _, h := range handles {
		r.Deregister(h, reason)
	}
}
