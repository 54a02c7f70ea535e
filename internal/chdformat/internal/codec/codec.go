package codec

import "fmt"

// ID is a CHD compression codec identifier: the 4-character ASCII tag
// stored as a big-endian uint32 in the header's compressor slots.
type ID uint32

// Known codec IDs (MAME chd.h).
const (
	None    ID = 0
	Zlibc   ID = 0x7a6c6962 // 'zlib'
	LZMAc   ID = 0x6c7a6d61 // 'lzma'
	Huff    ID = 0x68756666 // 'huff'
	FLAC    ID = 0x666c6163 // 'flac'
	Zstdc   ID = 0x7a737464 // 'zstd'
	CDZlibc ID = 0x63647a6c // 'cdzl'
	CDLZMAc ID = 0x63646c7a // 'cdlz'
	CDFLAC  ID = 0x6364666c // 'cdfl'
	CDZstdc ID = 0x63647a73 // 'cdzs'
)

// huffmanNumSymbols matches CHD's byte-oriented Huffman codec: 256 symbols,
// one per possible decompressed byte value.
const huffmanNumSymbols = 256

// Decompress decompresses one hunk's compressed bytes using the codec
// identified by id. outputSize is the expected decompressed size; the
// LZMA and zstd paths return whatever length their stream decodes to,
// which can differ from it.
func Decompress(compressed []byte, id ID, outputSize int) ([]byte, error) {
	switch id {
	case None:
		result := make([]byte, outputSize)
		copy(result, compressed)
		return result, nil
	case Zlibc:
		return Zlib(compressed, outputSize)
	case LZMAc:
		return LZMA(compressed, outputSize)
	case Zstdc:
		return Zstd(compressed, outputSize)
	case Huff:
		return decompressHuffman(compressed, outputSize)
	case CDZlibc:
		return CDZlib(compressed, uint32(outputSize))
	case CDLZMAc:
		return CDLZMA(compressed, uint32(outputSize))
	case CDZstdc:
		return CDZstd(compressed, uint32(outputSize))
	case FLAC, CDFLAC:
		return nil, fmt.Errorf("codec: FLAC is audio-only, not supported for data hunks")
	default:
		return nil, fmt.Errorf("codec: unknown codec 0x%08x", uint32(id))
	}
}

func decompressHuffman(data []byte, outputSize int) ([]byte, error) {
	hd := NewHuffmanDecoder(huffmanNumSymbols, huffmanMaxBits)
	br := NewBitReader(data)

	if err := hd.ImportTreeRLE(br); err != nil {
		return nil, fmt.Errorf("huffman tree import: %w", err)
	}

	result := make([]byte, outputSize)
	for i := range outputSize {
		sym, err := hd.Decode(br)
		if err != nil {
			return nil, fmt.Errorf("huffman decode at byte %d: %w", i, err)
		}
		result[i] = sym
	}
	return result, nil
}
