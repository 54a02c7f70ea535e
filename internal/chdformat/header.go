// Package chdformat opens MAME CHD (Compressed Hunks of Data) v5 archives
// and exposes random-access, hunk-indexed decompression: component C of the
// virtual-filesystem design ("the underlying CHD codec library"). It also
// walks the CD-track metadata chain that component B's geometry classifier
// needs.
package chdformat

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// V5 header layout (124 bytes), big-endian throughout:
//
//	0    8   Magic ("MComprHD")
//	8    4   Header length
//	12   4   Version
//	16   16  Compressors[0..3]
//	32   8   Logical bytes
//	40   8   Map offset
//	48   8   Metadata offset
//	56   4   Hunk bytes
//	60   4   Unit bytes
//	64   20  Raw SHA1
//	84   20  SHA1
//	104  20  Parent SHA1 (zero if standalone)
const (
	headerSize       = 124
	rawSHA1Offset    = 64
	sha1Offset       = 84
	parentSHA1Offset = 104
	sha1Size         = 20
)

// Header holds the fields of a CHD v5 header relevant to this filesystem.
type Header struct {
	Version      uint32
	Compressors  [4]uint32
	LogicalBytes uint64
	MapOffset    uint64
	MetaOffset   uint64
	HunkBytes    uint32
	UnitBytes    uint32
	TotalHunks   uint32
	ParentSHA1   string
}

// parseHeader reads and validates a CHD v5 header.
func parseHeader(r io.ReaderAt, size int64) (*Header, error) {
	if size < headerSize {
		return nil, fmt.Errorf("chd: file too small for header (need %d, have %d)", headerSize, size)
	}

	buf := make([]byte, headerSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("chd: read header: %w", err)
	}

	if string(buf[0:8]) != "MComprHD" {
		return nil, fmt.Errorf("chd: bad magic")
	}

	headerLen := binary.BigEndian.Uint32(buf[8:12])
	version := binary.BigEndian.Uint32(buf[12:16])
	if version < 5 {
		return nil, fmt.Errorf("chd: version %d not supported (v5+ only)", version)
	}
	if headerLen < headerSize {
		return nil, fmt.Errorf("chd: header length %d too small", headerLen)
	}

	var compressors [4]uint32
	for i := range 4 {
		compressors[i] = binary.BigEndian.Uint32(buf[16+i*4:])
	}

	logicalBytes := binary.BigEndian.Uint64(buf[32:40])
	mapOffset := binary.BigEndian.Uint64(buf[40:48])
	metaOffset := binary.BigEndian.Uint64(buf[48:56])
	hunkBytes := binary.BigEndian.Uint32(buf[56:60])
	unitBytes := binary.BigEndian.Uint32(buf[60:64])

	var totalHunks uint32
	if hunkBytes > 0 {
		totalHunks = uint32((logicalBytes + uint64(hunkBytes) - 1) / uint64(hunkBytes))
	}

	parentBytes := buf[parentSHA1Offset : parentSHA1Offset+sha1Size]
	parentSHA1 := ""
	for _, b := range parentBytes {
		if b != 0 {
			parentSHA1 = hex.EncodeToString(parentBytes)
			break
		}
	}

	return &Header{
		Version:      version,
		Compressors:  compressors,
		LogicalBytes: logicalBytes,
		MapOffset:    mapOffset,
		MetaOffset:   metaOffset,
		HunkBytes:    hunkBytes,
		UnitBytes:    unitBytes,
		TotalHunks:   totalHunks,
		ParentSHA1:   parentSHA1,
	}, nil
}
