package codec

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// Zlib decompresses raw deflate-compressed data, as CHD stores it (no zlib
// wrapper header). outputSize is a sizing hint only, not a hard limit: the
// hunk is fully drained into a growable buffer and trimmed to outputSize
// afterward. A stream shorter than outputSize is an explicit error rather
// than being handed back short; a longer one is cut to outputSize.
func Zlib(data []byte, outputSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	var out bytes.Buffer
	out.Grow(outputSize)
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}

	if out.Len() < outputSize {
		return nil, fmt.Errorf("zlib: short decompressed stream: got %d bytes, want %d", out.Len(), outputSize)
	}
	return out.Bytes()[:outputSize], nil
}
