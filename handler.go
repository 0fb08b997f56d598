package evloop

import "github.com/legamerdc/evloop/poller"

// Handler 为登记在 Registry 中的就绪回调。
// 在事件循环 goroutine 中调用，要求无阻塞返回；实现有 acceptHandler 与 connHandler。
type Handler interface {
	OnReady(flags poller.Flags)
}
