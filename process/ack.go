package process

import (
	"net"

	"github.com/legamerdc/evloop"
)

const (
	ackPrefix = "we receive your"
	ackMiddle = " message:"
	ackSuffix = " , thanks for you call."
)

// Acknowledge 对每段入站字节回复一条带对端地址的确认消息。
func Acknowledge(c *evloop.Conn) evloop.Processor {
	return NewAcknowledger(c.RemoteAddr())
}

// NewAcknowledger 返回以 remote 为对端地址的确认处理器。
func NewAcknowledger(remote net.Addr) evloop.Processor {
	peer := "<unknown>"
	if remote != nil {
		peer = remote.String()
	}
	return evloop.ProcessFunc(func(out, in []byte) ([]byte, int) {
		out = append(out, ackPrefix...)
		out = append(out, peer...)
		out = append(out, ackMiddle...)
		out = append(out, in...)
		out = append(out, ackSuffix...)
		return out, len(in)
	})
}
