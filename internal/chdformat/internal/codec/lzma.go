package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzmaMinDictSize is the smallest dictionary ulikunitz/xz's reader will
// accept; a hunk decompressing to less than this still gets a dictionary
// of at least this size, since LZMA decoders tolerate an oversized one.
const lzmaMinDictSize = 65536

// lzmaRawProps is CHD's fixed encoder property byte: (pb*5+lp)*9+lc with
// CHD's always-used pb=2, lp=0, lc=3.
const lzmaRawProps = 0x5D

// lzmaStreamHeader is the 13-byte classic-.lzma container header CHD's
// raw hunk stream omits. ulikunitz/xz's Reader only understands that
// container, so one is synthesized in front of the hunk's compressed
// bytes rather than materializing a second, hand-decoded LZMA decoder.
type lzmaStreamHeader struct {
	props            byte
	dictSize         uint32
	uncompressedSize uint64
}

func (h lzmaStreamHeader) bytes() []byte {
	buf := make([]byte, 13)
	buf[0] = h.props
	binary.LittleEndian.PutUint32(buf[1:5], h.dictSize)
	binary.LittleEndian.PutUint64(buf[5:13], h.uncompressedSize)
	return buf
}

func lzmaDictSizeFor(outputSize int) uint32 {
	if outputSize > lzmaMinDictSize {
		return uint32(outputSize)
	}
	return lzmaMinDictSize
}

// LZMA decompresses raw LZMA data as CHD stores it: no header, fixed
// lc=3/lp=0/pb=2 properties.
func LZMA(data []byte, outputSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("lzma: empty input")
	}

	hdr := lzmaStreamHeader{
		props:            lzmaRawProps,
		dictSize:         lzmaDictSizeFor(outputSize),
		uncompressedSize: uint64(outputSize),
	}
	// Chain the synthesized header in front of the hunk bytes instead of
	// copying both into one concatenated buffer.
	stream := io.MultiReader(bytes.NewReader(hdr.bytes()), bytes.NewReader(data))

	r, err := lzma.NewReader(stream)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}

	var out bytes.Buffer
	out.Grow(outputSize)
	if _, err := io.CopyN(&out, r, int64(outputSize)); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return out.Bytes(), nil
}
