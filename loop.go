//go:build linux || darwin

package evloop

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/legamerdc/evloop/internal/netutil"
	"github.com/legamerdc/evloop/poller"
)

const minSweepInterval = 10 * time.Millisecond

// EventLoop 为单线程 reactor：唯一的 goroutine 等待就绪事件并分发给 Handler。
type EventLoop struct {
	cfg      Config
	log      *slog.Logger
	obs      Observer
	poller   poller.Poller
	registry *Registry

	events  []poller.Event
	scratch []byte // 读缓冲，所有连接共用
	outBuf  []byte // Processor 输出缓冲
	now     time.Time

	idleTimeout time.Duration
	lastSweep   time.Time

	// 跨 goroutine 的任务交接
	tasksMu     sync.Mutex
	tasks       *queue.Queue
	tasksClosed bool
	batch       []func()

	// 阻塞工作的 worker 池
	workersMu     sync.RWMutex
	workers       errgroup.Group
	workersClosed bool
	ctx           context.Context
	cancel        context.CancelFunc

	running  atomic.Bool
	stopping atomic.Bool
	done     chan struct{}
}

// NewEventLoop 创建未启动的事件循环。
func NewEventLoop(cfg Config) (*EventLoop, error) {
	return newEventLoop(cfg, poller.New)
}

func newEventLoop(cfg Config, newPoller func() (poller.Poller, error)) (*EventLoop, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	l := &EventLoop{
		cfg:         cfg,
		log:         cfg.Logger,
		obs:         cfg.Observer,
		poller:      p,
		registry:    newRegistry(p, cfg.Observer),
		events:      make([]poller.Event, cfg.MaxEvents),
		scratch:     make([]byte, cfg.ReadChunk),
		idleTimeout: cfg.IdleTimeout,
		tasks:       queue.New(),
		done:        make(chan struct{}),
	}
	l.workers.SetLimit(cfg.Workers)
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l, nil
}

// Listen 打开监听 socket 并登记 acceptHandler，须在 Run 之前调用。
// address 为空时使用 Config.Address。
func (l *EventLoop) Listen(address string) (net.Addr, error) {
	if l.running.Load() {
		return nil, fmt.Errorf("%w: Listen after Run", ErrInvalidArgument)
	}
	if address == "" {
		address = l.cfg.Address
	}
	fd, addr, err := netutil.Listen(l.cfg.Network, address, l.cfg.Backlog, l.cfg.ReusePort)
	if err != nil {
		return nil, err
	}
	if err := l.registry.attachListener(fd, &acceptHandler{loop: l, fd: fd}); err != nil {
		_ = l.registry.closeFD(fd)
		return nil, err
	}
	l.log.Info("listening", "addr", addr)
	return addr, nil
}

// Run 在当前 goroutine 中运行事件循环，直到 Stop 或发生致命错误。
// 返回前关闭全部连接、监听 socket 与 poller。只有致命错误会返回非 nil；
// 已被 Stop 的循环直接返回 nil。
func (l *EventLoop) Run() error {
	if !l.running.CAS(false, true) {
		if l.stopping.Load() {
			// Stop 先于 Run，资源已由 Stop 释放
			<-l.done
			return nil
		}
		return fmt.Errorf("%w: loop already running", ErrInvalidArgument)
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer l.shutdown()

	l.now = time.Now()
	l.lastSweep = l.now
	for !l.stopping.Load() {
		l.runTasks()
		n, err := l.poller.Wait(l.events, l.waitTimeout())
		if err != nil {
			l.log.Error("poller wait failed", "err", err)
			return fmt.Errorf("%w: %w", ErrLoopFatal, err)
		}
		l.now = time.Now()
		for i := 0; i < n; i++ {
			l.dispatch(l.events[i])
			l.events[i] = poller.Event{}
		}
		l.sweepIdle()
	}
	return nil
}

// Stop 请求停止并唤醒阻塞中的等待；正在执行的 Handler 先完成。可在任意 goroutine 重复调用。
// 若 Run 尚未开始，则直接释放资源。
func (l *EventLoop) Stop() {
	if !l.stopping.CAS(false, true) {
		return
	}
	l.cancel()
	if l.running.CAS(false, true) {
		l.shutdown()
		return
	}
	_ = l.poller.Wake()
}

// Done 在 Run 返回（或未运行的循环被 Stop）后关闭。
func (l *EventLoop) Done() <-chan struct{} { return l.done }

// Registry 返回连接登记表，只能在事件循环 goroutine 中使用（例如在 Submit 的任务里）。
func (l *EventLoop) Registry() *Registry { return l.registry }

// ConnCount 返回存活连接数，可在任意 goroutine 调用。
func (l *EventLoop) ConnCount() int64 { return l.registry.ConnCount() }

// IdleTimeout 返回当前空闲超时，只能在事件循环 goroutine 中调用。
func (l *EventLoop) IdleTimeout() time.Duration { return l.idleTimeout }

// SetIdleTimeout 修改空闲超时，0 表示关闭；只能在事件循环 goroutine 中调用。
func (l *EventLoop) SetIdleTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	l.idleTimeout = d
}

// Submit 将任务交给事件循环 goroutine，在下一轮迭代开始时按提交顺序执行。
// 可在任意 goroutine 调用，不会阻塞。
func (l *EventLoop) Submit(task func()) error {
	if task == nil {
		return ErrInvalidArgument
	}
	l.tasksMu.Lock()
	if l.tasksClosed || l.stopping.Load() {
		l.tasksMu.Unlock()
		return ErrLoopStopped
	}
	l.tasks.Add(task)
	l.tasksMu.Unlock()
	if err := l.poller.Wake(); err != nil && err != poller.ErrClosed {
		l.log.Warn("wake failed", "err", err)
	}
	return nil
}

// Offload 在 worker 池中执行阻塞工作，结果经 Submit 交回事件循环：
// 字节追加到连接的出站缓冲，错误则关闭连接。连接已关闭时结果被丢弃。
// worker 全忙时返回 ErrWorkersBusy，调用方不会被阻塞。
func (l *EventLoop) Offload(h Handle, fn func(ctx context.Context) ([]byte, error)) error {
	if fn == nil {
		return ErrInvalidArgument
	}
	l.workersMu.RLock()
	defer l.workersMu.RUnlock()
	if l.workersClosed || l.stopping.Load() {
		return ErrLoopStopped
	}
	ok := l.workers.TryGo(func() error {
		out, err := fn(l.ctx)
		if serr := l.Submit(func() { l.deliver(h, out, err) }); serr != nil {
			l.log.Debug("offload result dropped", "conn", uint64(h), "err", serr)
		}
		return nil
	})
	if !ok {
		return ErrWorkersBusy
	}
	return nil
}

func (l *EventLoop) deliver(h Handle, out []byte, err error) {
	hd, ok := l.registry.handlerOf(h)
	if !ok {
		return
	}
	ch, ok := hd.(*connHandler)
	if !ok {
		return
	}
	if err != nil {
		ch.fail(err)
		return
	}
	if len(out) > 0 {
		ch.enqueue(out)
	}
}

func (l *EventLoop) runTasks() {
	l.tasksMu.Lock()
	for l.tasks.Length() > 0 {
		l.batch = append(l.batch, l.tasks.Remove().(func()))
	}
	l.tasksMu.Unlock()
	for i, task := range l.batch {
		l.runTask(task)
		l.batch[i] = nil
	}
	l.batch = l.batch[:0]
}

func (l *EventLoop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("task panic", "panic", r)
		}
	}()
	task()
}

func (l *EventLoop) dispatch(ev poller.Event) {
	e, ok := l.registry.handlerFor(ev.FD)
	if !ok {
		// 同一轮中已被关闭的 fd
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.handlerPanic(e, r)
		}
	}()
	e.handler.OnReady(ev.Flags)
}

// handlerPanic 强制关闭出错的连接，事件循环继续运行。
func (l *EventLoop) handlerPanic(e *entry, r any) {
	err := fmt.Errorf("%w: %v", ErrHandlerPanic, r)
	if e.conn == nil {
		l.log.Error("listener handler panic", "fd", e.fd, "panic", r)
		return
	}
	if e.conn.state != StateClosed {
		l.obs.HandlerError(e.conn, err)
	}
	l.registry.Deregister(e.conn.handle, err)
}

func (l *EventLoop) waitTimeout() time.Duration {
	t := l.cfg.PollTimeout
	if l.idleTimeout > 0 {
		iv := l.sweepInterval()
		if iv < t {
			t = iv
		}
	}
	return t
}

func (l *EventLoop) sweepInterval() time.Duration {
	iv := l.idleTimeout / 4
	if iv < minSweepInterval {
		iv = minSweepInterval
	}
	return iv
}

// sweepIdle 关闭超过空闲超时的连接，每轮迭代最多检查一次。
func (l *EventLoop) sweepIdle() {
	if l.idleTimeout <= 0 || l.now.Sub(l.lastSweep) < l.sweepInterval() {
		return
	}
	l.lastSweep = l.now
	var expired []Handle
	l.registry.Range(func(c *Conn) bool {
		if c.idle(l.now) >= l.idleTimeout {
			expired = append(expired, c.handle)
		}
		return true
	})
	for _, h := range expired {
		l.registry.Deregister(h, ErrIdleTimeout)
	}
}

func (l *EventLoop) shutdown() {
	l.tasksMu.Lock()
	l.tasksClosed = true
	l.tasksMu.Unlock()
	// 停止前已提交的任务仍按顺序执行
	l.runTasks()

	l.registry.closeAll(ErrLoopStopped)
	l.registry.closeListeners()

	l.cancel()
	l.workersMu.Lock()
	l.workersClosed = true
	l.workersMu.Unlock()
	_ = l.workers.Wait()

	if err := l.poller.Close(); err != nil {
		l.log.Warn("close poller", "err", err)
	}
	close(l.done)
	l.log.Info("event loop exited")
}
