package evloop

import (
	"fmt"
	"log/slog"
	"time"
)

// Processor 为可插拔的处理步骤：把入站字节转换为出站字节。
// 输出追加到 out 后返回；consumed 为本次消费的入站字节数，
// 未消费的部分保留到下次读取后再次交给 Process。
// in 与 out 只在本次调用期间有效，实现不得保留；输出应追加到 out，而不是返回 in。
// Process 在事件循环 goroutine 中调用，不得阻塞；阻塞工作使用 EventLoop.Offload。
type Processor interface {
	Process(out, in []byte) (res []byte, consumed int)
}

// ProcessFunc 将普通函数适配为 Processor。
type ProcessFunc func(out, in []byte) ([]byte, int)

func (f ProcessFunc) Process(out, in []byte) ([]byte, int) { return f(out, in) }

// Echo 原样返回全部入站字节。
var Echo Processor = ProcessFunc(func(out, in []byte) ([]byte, int) {
	return append(out, in...), len(in)
})

// Config 为事件循环与监听的配置。零值字段在 NewEventLoop 中以 DefaultConfig 补齐。
type Config struct {
	Address     string        // 监听地址，如 ":8080"
	Network     string        // tcp / tcp4 / tcp6
	Backlog     int           // listen backlog
	ReusePort   bool          // SO_REUSEPORT
	PollTimeout time.Duration // 单次等待上限，保证 Stop 与空闲检测能及时被观察到
	IdleTimeout time.Duration // 连接空闲超时，0 表示关闭
	MaxEvents   int           // 单次等待返回的最大事件数
	MaxConns    int           // 最大连接数，0 表示不限

	ReadChunk    int // 单次 read 的最大字节数
	RxBufferSize int // 每连接入站缓冲（字节）
	TxBufferSize int // 每连接出站缓冲（字节），出站积压的上限
	Workers      int // Offload 的并发上限

	Process      Processor              // 所有连接共享的处理步骤，默认 Echo
	NewProcessor func(c *Conn) Processor // 每连接的处理步骤构造，优先于 Process

	Observer Observer     // 连接事件观察者，默认 LogObserver
	Logger   *slog.Logger // 默认 slog.Default()
}

// DefaultConfig 提供一组可工作的默认值
func DefaultConfig() Config {
	return Config{
		Address:      ":0",
		Network:      "tcp",
		Backlog:      1024,
		PollTimeout:  time.Second,
		MaxEvents:    256,
		ReadChunk:    64 << 10,  // 64 KiB
		RxBufferSize: 256 << 10, // 256 KiB
		TxBufferSize: 1 << 20,   // 1 MiB
		Workers:      16,
		Process:      Echo,
	}
}

func (c *Config) normalize() error {
	def := DefaultConfig()
	if c.Address == "" {
		c.Address = def.Address
	}
	if c.Network == "" {
		c.Network = def.Network
	}
	if c.Backlog <= 0 {
		c.Backlog = def.Backlog
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = def.MaxEvents
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = def.ReadChunk
	}
	if c.RxBufferSize <= 0 {
		c.RxBufferSize = def.RxBufferSize
	}
	if c.TxBufferSize <= 0 {
		c.TxBufferSize = def.TxBufferSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.Process == nil {
		c.Process = def.Process
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Logger = c.Logger.With("component", "evloop")
	if c.Observer == nil {
		c.Observer = LogObserver{Logger: c.Logger}
	}
	if c.ReadChunk > c.RxBufferSize {
		return fmt.Errorf("%w: ReadChunk %d exceeds RxBufferSize %d", ErrInvalidArgument, c.ReadChunk, c.RxBufferSize)
	}
	// 出站缓冲至少容纳一次读入的回显
	if c.TxBufferSize < c.ReadChunk {
		return fmt.Errorf("%w: TxBufferSize %d smaller than ReadChunk %d", ErrInvalidArgument, c.TxBufferSize, c.ReadChunk)
	}
	return nil
}
