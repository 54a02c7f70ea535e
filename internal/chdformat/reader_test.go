package chdformat

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// bitWriter is the test-only mirror of internal/codec's bit reader, used to
// hand-encode a minimal V5 hunk map for these tests.
type bitWriter struct {
	buf    []byte
	bitPos int
}

func (w *bitWriter) WriteBits(value uint32, count uint) {
	for i := int(count) - 1; i >= 0; i-- {
		bit := (value >> uint(i)) & 1
		byteIdx := w.bitPos / 8
		for byteIdx >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if bit == 1 {
			w.buf[byteIdx] |= 1 << uint(7-w.bitPos%8)
		}
		w.bitPos++
	}
}

// buildSingleNoneHunkMap encodes a compression-type huffman tree with only
// symbol compressionNone (4) in use, followed by one hunk's worth of
// decoded fields (just a CRC field, since compressionNone carries no
// explicit length), matching ImportTreeRLE/decodeMapEntries's bit layout.
func buildSingleNoneHunkMap() []byte {
	w := &bitWriter{}
	for sym := 0; sym < 4; sym++ {
		w.WriteBits(0, 4) // codeLen[sym] = 0
	}
	w.WriteBits(1, 4) // escape
	w.WriteBits(1, 4) // codeLen[4] = 1
	for sym := 5; sym < 16; sym++ {
		w.WriteBits(0, 4) // codeLen[sym] = 0
	}
	w.WriteBits(0, 1)  // the single-bit code for symbol 4 (compressionNone)
	w.WriteBits(0, 16) // crc16 field for the hunk
	return w.buf
}

func writeUint48BE(b []byte, v uint64) {
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}

func buildSyntheticCHD(t *testing.T, hunkBytes uint32, hunkData []byte) []byte {
	t.Helper()

	const hunkOffset = headerSize
	mapOffset := uint64(hunkOffset) + uint64(hunkBytes)

	compressed := buildSingleNoneHunkMap()

	entries := []mapEntry{{
		compression: compressionNone,
		length:      hunkBytes,
		offset:      uint64(hunkOffset),
		crc16:       0,
	}}
	mapCRC := mapEntriesCRC(entries)

	header := buildV5Header(hunkBytes, hunkBytes, uint64(hunkBytes), mapOffset, 0)

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(hunkData)

	mapHeader := make([]byte, mapHeaderSize)
	binary.BigEndian.PutUint32(mapHeader[0:4], uint32(len(compressed)))
	writeUint48BE(mapHeader[4:10], uint64(hunkOffset))
	binary.BigEndian.PutUint16(mapHeader[10:12], mapCRC)
	mapHeader[12] = 0 // lengthbits
	mapHeader[13] = 0 // selfbits
	mapHeader[14] = 0 // parentbits
	buf.Write(mapHeader)
	buf.Write(compressed)

	return buf.Bytes()
}

func TestOpenAndReadHunk(t *testing.T) {
	hunkBytes := uint32(16)
	want := bytes.Repeat([]byte{0xAB}, int(hunkBytes))

	fileBuf := buildSyntheticCHD(t, hunkBytes, want)

	r, err := openReader(bytes.NewReader(fileBuf), int64(len(fileBuf)))
	if err != nil {
		t.Fatalf("openReader() error = %v", err)
	}

	if r.TotalHunks() != 1 {
		t.Fatalf("TotalHunks() = %d, want 1", r.TotalHunks())
	}
	if r.HunkBytes() != hunkBytes {
		t.Fatalf("HunkBytes() = %d, want %d", r.HunkBytes(), hunkBytes)
	}

	got := make([]byte, hunkBytes)
	if err := r.ReadHunk(0, got); err != nil {
		t.Fatalf("ReadHunk() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadHunk() = %x, want %x", got, want)
	}

	if err := r.ReadHunk(1, got); err == nil {
		t.Errorf("ReadHunk(1) on single-hunk file should error")
	}
}

func TestWalkMetadata(t *testing.T) {
	hunkBytes := uint32(16)
	data := bytes.Repeat([]byte{0x00}, int(hunkBytes))
	fileBuf := buildSyntheticCHD(t, hunkBytes, data)

	// Append one CHTR metadata entry after the map section, and point the
	// header's metadata offset at it.
	metaOffset := uint64(len(fileBuf))
	payload := []byte("TRACK:1 TYPE:MODE1_RAW FRAMES:10\x00")

	entryHeader := make([]byte, 16)
	copy(entryHeader[0:4], "CHTR")
	binary.BigEndian.PutUint32(entryHeader[4:8], uint32(len(payload))&0x00FFFFFF)
	binary.BigEndian.PutUint64(entryHeader[8:16], 0)

	buf := bytes.NewBuffer(fileBuf)
	buf.Write(entryHeader)
	buf.Write(payload)

	full := buf.Bytes()
	binary.BigEndian.PutUint64(full[48:56], metaOffset)

	r, err := openReader(bytes.NewReader(full), int64(len(full)))
	if err != nil {
		t.Fatalf("openReader() error = %v", err)
	}

	var seen [][]byte
	err = r.WalkMetadata(TagCDROM, func(p []byte) error {
		seen = append(seen, append([]byte(nil), p...))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkMetadata() error = %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("got %d entries, want 1", len(seen))
	}
	if !bytes.Equal(bytes.TrimRight(seen[0], "\x00"), bytes.TrimRight(payload, "\x00")) {
		t.Errorf("payload = %q, want %q", seen[0], payload)
	}
}
