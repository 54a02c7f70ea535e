package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// sharedZstdDecoder is built lazily on first use rather than in an init()
// func: most mounts serve CD/DVD images encoded with zlib or LZMA, and
// spinning up zstd's worker goroutines for a decoder that may never be
// asked to do anything is wasted startup cost.
var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdInitErr error
)

func getZstdDecoder() (*zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdInitErr = zstd.NewReader(nil)
	})
	return zstdDecoder, zstdInitErr
}

// Zstd decompresses Zstandard-compressed hunk data.
func Zstd(data []byte, outputSize int) ([]byte, error) {
	dec, err := getZstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd: init decoder: %w", err)
	}

	result, err := dec.DecodeAll(data, make([]byte, 0, outputSize))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return result, nil
}
