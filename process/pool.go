package process

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// 每个压缩等级一个池，下标为 zstd.EncoderLevel
var (
	encoderPools [zstd.SpeedBestCompression + 1]sync.Pool
	decoderPool  = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	}}
)

func init() {
	for i := range encoderPools {
		level := zstd.EncoderLevel(i)
		if level < zstd.SpeedFastest {
			level = zstd.SpeedFastest
		}
		encoderPools[i].New = func() any {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
			return enc
		}
	}
}

func getEncoder(level zstd.EncoderLevel) *zstd.Encoder {
	return encoderPools[level].Get().(*zstd.Encoder)
}
func putEncoder(level zstd.EncoderLevel, e *zstd.Encoder) { encoderPools[level].Put(e) }
func getDecoder() *zstd.Decoder                           { return decoderPool.Get().(*zstd.Decoder) }
func putDecoder(d *zstd.Decoder)                          { decoderPool.Put(d) }
