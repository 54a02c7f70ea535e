package codec

import "fmt"

// cdSectorBytes is the raw CD frame size CHD's logical CD view operates on
// (spec's "2352-byte raw disc frame"); cdSubcodeBytes is the per-frame
// subcode channel CHD's CD-wrapped codecs carry alongside it on the wire
// but that this implementation never surfaces to callers.
const (
	cdSectorBytes  = 2352
	cdSubcodeBytes = 96
)

type baseDecompressor func([]byte, int) ([]byte, error)

// CDZlib, CDLZMA and CDZstd decompress a CD-ROM hunk whose base (sector)
// codec is zlib, LZMA or zstd respectively. hunkBytes is the header's
// hunk_bytes, a multiple of 2352; the base stream's end comes from its
// length field, and the subcode data after it is not decoded.
func CDZlib(data []byte, hunkBytes uint32) ([]byte, error) { return decompressCD(data, hunkBytes, Zlib, "zlib") }
func CDLZMA(data []byte, hunkBytes uint32) ([]byte, error) { return decompressCD(data, hunkBytes, LZMA, "lzma") }
func CDZstd(data []byte, hunkBytes uint32) ([]byte, error) { return decompressCD(data, hunkBytes, Zstd, "zstd") }

// decompressCD reads the [ecc bitmap][base length][base data][subcode data]
// wire layout CHD's CD codecs use and returns only the decompressed
// 2352-byte-per-frame sector stream.
func decompressCD(data []byte, hunkBytes uint32, base baseDecompressor, name string) ([]byte, error) {
	frames := int(hunkBytes) / cdSectorBytes
	if frames == 0 {
		return nil, fmt.Errorf("cd codec: invalid hunk size %d", hunkBytes)
	}

	eccBytes := (frames + 7) / 8
	lenBytes := 2
	if hunkBytes >= 65536 {
		lenBytes = 3
	}
	headerBytes := eccBytes + lenBytes

	if len(data) < headerBytes {
		return nil, fmt.Errorf("cd codec: need %d header bytes, have %d", headerBytes, len(data))
	}

	var baseLen int
	if lenBytes == 2 {
		baseLen = int(data[eccBytes])<<8 | int(data[eccBytes+1])
	} else {
		baseLen = int(data[eccBytes])<<16 | int(data[eccBytes+1])<<8 | int(data[eccBytes+2])
	}

	if len(data) < headerBytes+baseLen {
		return nil, fmt.Errorf("cd codec: need %d bytes for base data, have %d", headerBytes+baseLen, len(data))
	}

	baseCompressed := data[headerBytes : headerBytes+baseLen]
	baseData, err := base(baseCompressed, frames*cdSectorBytes)
	if err != nil {
		return nil, fmt.Errorf("cd codec base decompress (%s): %w", name, err)
	}

	if len(baseData) < int(hunkBytes) {
		return nil, fmt.Errorf("cd codec: short base data (got %d, want %d)", len(baseData), hunkBytes)
	}
	return baseData[:hunkBytes], nil
}
