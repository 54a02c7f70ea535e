// Package codec implements the hunk-payload decompressors CHD v5 files use:
// raw deflate, raw LZMA, zstd, CHD's own Huffman scheme, and the CD-ROM
// codec wrapper that interleaves a base codec with zlib-compressed subcode.
package codec

import "fmt"

// BitReader reads fixed-width big-endian bit fields from a byte slice, as
// used by the V5 hunk map and the Huffman codec.
type BitReader struct {
	data   []byte
	bitPos int64
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// ReadBits reads count (<=32) bits and advances the cursor.
func (br *BitReader) ReadBits(count uint32) (uint32, error) {
	var result uint32
	for range count {
		byteIdx := br.bitPos / 8
		if int(byteIdx) >= len(br.data) {
			return 0, fmt.Errorf("bit reader: out of data at bit %d", br.bitPos)
		}
		bitIdx := uint(7 - br.bitPos%8)
		bit := (br.data[byteIdx] >> bitIdx) & 1
		result = (result << 1) | uint32(bit)
		br.bitPos++
	}
	return result, nil
}

// huffmanMaxBits is the maximum code length CHD's Huffman codec uses.
const huffmanMaxBits = 16

// HuffmanDecoder decodes CHD's canonical-Huffman-with-RLE symbol stream.
// Grounded on the decode algorithm in ZaparooProject-go-gameid's
// chd/bitstream.go, adapted to return errors instead of silently padding
// past the end of the stream.
type HuffmanDecoder struct {
	numSymbols int
	maxBits    int
	codeLen    []uint8
	lookup     []uint32 // (symbol << 5) | codeLen, indexed by maxBits-wide prefix
}

func NewHuffmanDecoder(numSymbols, maxBits int) *HuffmanDecoder {
	return &HuffmanDecoder{
		numSymbols: numSymbols,
		maxBits:    maxBits,
		codeLen:    make([]uint8, numSymbols),
		lookup:     make([]uint32, 1<<uint(maxBits)),
	}
}

// ImportTreeRLE reads the RLE-encoded table of per-symbol code lengths and
// builds the canonical decode lookup table.
func (hd *HuffmanDecoder) ImportTreeRLE(br *BitReader) error {
	var numBits uint32
	switch {
	case hd.maxBits >= 16:
		numBits = 5
	case hd.maxBits >= 8:
		numBits = 4
	default:
		numBits = 3
	}

	for cur := 0; cur < hd.numSymbols; {
		v, err := br.ReadBits(numBits)
		if err != nil {
			return err
		}
		if v != 1 {
			hd.codeLen[cur] = uint8(v)
			cur++
			continue
		}

		v, err = br.ReadBits(numBits)
		if err != nil {
			return err
		}
		if v == 1 {
			hd.codeLen[cur] = 1
			cur++
			continue
		}

		repCount64, err := br.ReadBits(numBits)
		if err != nil {
			return err
		}
		repCount := int(repCount64) + 3
		for i := 0; i < repCount && cur < hd.numSymbols; i++ {
			hd.codeLen[cur] = uint8(v)
			cur++
		}
	}

	return hd.buildLookup()
}

// buildLookup assigns canonical codes from highest to lowest bit length,
// MAME's convention, then fans each code out across every lookup entry
// whose top bits match it.
func (hd *HuffmanDecoder) buildLookup() error {
	var histogram [33]uint32
	for _, l := range hd.codeLen {
		if l <= 32 {
			histogram[l]++
		}
	}

	var curStart uint32
	for codeLen := 32; codeLen > 0; codeLen-- {
		next := (curStart + histogram[codeLen]) >> 1
		histogram[codeLen] = curStart
		curStart = next
	}

	codes := make([]uint32, hd.numSymbols)
	for i, l := range hd.codeLen {
		if l > 0 {
			codes[i] = histogram[l]
			histogram[l]++
		}
	}

	for i, l := range hd.codeLen {
		if l == 0 {
			continue
		}
		entry := uint32(i<<5) | uint32(l)
		shift := hd.maxBits - int(l)
		base := int(codes[i]) << shift
		end := (int(codes[i]+1) << shift) - 1
		for j := base; j <= end; j++ {
			if j < 0 || j >= len(hd.lookup) {
				return fmt.Errorf("huffman: lookup index %d out of range", j)
			}
			hd.lookup[j] = entry
		}
	}
	return nil
}

// Decode reads one symbol, consuming only the bits its code actually uses.
func (hd *HuffmanDecoder) Decode(br *BitReader) (uint8, error) {
	// Peek maxBits worth of bits without permanently consuming more than
	// the code needs: read them, then rewind the excess.
	savedPos := br.bitPos
	peek, err := br.ReadBits(uint32(hd.maxBits))
	if err != nil {
		// Not enough bits left for a full peek; fall back to reading only
		// what remains, which is sufficient near the end of a stream whose
		// final code is short.
		br.bitPos = savedPos
		var built uint32
		for bits := 1; bits <= hd.maxBits; bits++ {
			br.bitPos = savedPos
			v, rerr := br.ReadBits(uint32(bits))
			if rerr != nil {
				return 0, rerr
			}
			built = v << uint(hd.maxBits-bits)
			entry := hd.lookup[built]
			if int(entry&0x1f) == bits {
				br.bitPos = savedPos + int64(bits)
				return uint8(entry >> 5), nil
			}
		}
		return 0, fmt.Errorf("huffman: no matching code near end of stream")
	}

	entry := hd.lookup[peek]
	codeLen := int(entry & 0x1f)
	br.bitPos = savedPos + int64(codeLen)
	return uint8(entry >> 5), nil
}
