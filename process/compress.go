// Package process 提供常用的 evloop.Processor 实现。
package process

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/legamerdc/evloop"
)

// Compress 将每段入站字节压缩为一个独立的 zstd 帧。
// 出站流是若干 zstd 帧的串联，可整体交给 DecodeFrames 或任意 zstd 解码器。
func Compress(level zstd.EncoderLevel) evloop.Processor {
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		level = zstd.SpeedDefault
	}
	return evloop.ProcessFunc(func(out, in []byte) ([]byte, int) {
		enc := getEncoder(level)
		out = enc.EncodeAll(in, out)
		putEncoder(level, enc)
		return out, len(in)
	})
}

// DecodeFrames 解码串联的 zstd 帧。
func DecodeFrames(b []byte) ([]byte, error) {
	dec := getDecoder()
	defer putDecoder(dec)
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("process: decode frames: %w", err)
	}
	return out, nil
}
