package compression

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdMaxWindow bounds the history buffer a frame may ask for. Encoders in
// this package never use windows above 8 MiB.
const zstdMaxWindow = 64 << 20

// The shared encoder serves every plane: EncodeAll is safe for concurrent
// use. Decoders are pooled and stream, so the decoded size is bounded by
// what is actually read rather than by the frame header.
var (
	zstdDefaultEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	})
	zstdDecoderPool = sync.Pool{
		New: func() any {
			d, err := zstd.NewReader(nil,
				zstd.WithDecoderConcurrency(1),
				zstd.WithDecoderLowmem(true),
				zstd.WithDecoderMaxWindow(zstdMaxWindow))
			if err != nil {
				return err
			}
			return d
		},
	}
)

func zstdCompress(src []byte, level Level) ([]byte, error) {
	if level == LevelDefault {
		enc, err := zstdDefaultEncoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
	}

	if level < 1 || level > 22 {
		return nil, fmt.Errorf("compression: zstd level %d out of range 1..22", level)
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func zstdDecompress(src []byte, size int) ([]byte, error) {
	var dec *zstd.Decoder
	switch v := zstdDecoderPool.Get().(type) {
	case *zstd.Decoder:
		dec = v
	case error:
		return nil, v
	}
	defer func() {
		// Drop the reference to src before pooling.
		_ = dec.Reset(nil)
		zstdDecoderPool.Put(dec)
	}()

	if err := dec.Reset(bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return readPlane(dec, len(src), size)
}
