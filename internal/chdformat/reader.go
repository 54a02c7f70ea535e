package chdformat

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lloydsmart/chd2iso-fuse/internal/chdformat/internal/codec"
)

// Reader provides random-access, hunk-indexed decompression of a CHD v5
// file: the underlying codec library component B (geometry) and the rest
// of the filesystem build on.
type Reader struct {
	file io.ReaderAt
	close func() error

	header *Header
	hmap   *hunkMap

	mu        sync.Mutex
	hunkCache map[uint32][]byte
}

const hunkCacheLimit = 32

// Open opens the CHD file at path and parses its header and hunk map.
// Parent (diff) CHDs are not supported, matching a standalone-file-only
// design.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chd: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chd: stat %s: %w", path, err)
	}

	r, err := openReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.close = f.Close
	return r, nil
}

// openReader builds a Reader over an already-open ReaderAt, used directly
// by tests that don't want to touch the filesystem.
func openReader(f io.ReaderAt, size int64) (*Reader, error) {
	header, err := parseHeader(f, size)
	if err != nil {
		return nil, fmt.Errorf("chd: parse header: %w", err)
	}
	if header.ParentSHA1 != "" {
		return nil, fmt.Errorf("chd: parent (diff) CHDs are not supported")
	}

	hmap, err := decodeMap(f, header)
	if err != nil {
		return nil, fmt.Errorf("chd: decode hunk map: %w", err)
	}

	return &Reader{
		file:      f,
		header:    header,
		hmap:      hmap,
		hunkCache: make(map[uint32][]byte),
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r.close != nil {
		return r.close()
	}
	return nil
}

// LogicalBytes is the total uncompressed size of the CHD's data.
func (r *Reader) LogicalBytes() uint64 { return r.header.LogicalBytes }

// HunkBytes is the size, in bytes, of each hunk.
func (r *Reader) HunkBytes() uint32 { return r.header.HunkBytes }

// UnitBytes is the size, in bytes, of each logical unit (2352 for CD-ROM).
func (r *Reader) UnitBytes() uint32 { return r.header.UnitBytes }

// TotalHunks is the number of hunks in the logical data.
func (r *Reader) TotalHunks() uint32 { return r.header.TotalHunks }

// ReadHunk decompresses hunk index and copies it into dst, which must be
// exactly HunkBytes() long.
func (r *Reader) ReadHunk(index uint32, dst []byte) error {
	data, err := r.readHunk(index)
	if err != nil {
		return err
	}
	if len(dst) != len(data) {
		return fmt.Errorf("chd: dst length %d does not match hunk size %d", len(dst), len(data))
	}
	copy(dst, data)
	return nil
}

func (r *Reader) readHunk(hunkNum uint32) ([]byte, error) {
	r.mu.Lock()
	if cached, ok := r.hunkCache[hunkNum]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	if int(hunkNum) >= len(r.hmap.entries) {
		return nil, fmt.Errorf("chd: hunk %d out of range (total %d)", hunkNum, len(r.hmap.entries))
	}

	entry := r.hmap.entries[hunkNum]
	hunkBytes := r.header.HunkBytes

	var data []byte
	var err error

	switch entry.compression {
	case compressionNone:
		data = make([]byte, hunkBytes)
		if _, err = r.file.ReadAt(data, int64(entry.offset)); err != nil {
			return nil, fmt.Errorf("chd: read uncompressed hunk %d: %w", hunkNum, err)
		}

	case compressionType0, compressionType1, compressionType2, compressionType3:
		codecID := codec.ID(r.header.Compressors[entry.compression])
		compressed := make([]byte, entry.length)
		if _, err = r.file.ReadAt(compressed, int64(entry.offset)); err != nil {
			return nil, fmt.Errorf("chd: read compressed hunk %d: %w", hunkNum, err)
		}
		data, err = codec.Decompress(compressed, codecID, int(hunkBytes))
		if err != nil {
			return nil, fmt.Errorf("chd: decompress hunk %d (codec 0x%08x): %w", hunkNum, uint32(codecID), err)
		}

	case compressionSelf:
		refHunk := uint32(entry.offset)
		if refHunk >= hunkNum {
			return nil, fmt.Errorf("chd: forward self-reference from hunk %d to %d", hunkNum, refHunk)
		}
		ref, rerr := r.readHunk(refHunk)
		if rerr != nil {
			return nil, fmt.Errorf("chd: read self-referenced hunk %d: %w", refHunk, rerr)
		}
		data = append([]byte(nil), ref...)

	case compressionParent:
		return nil, fmt.Errorf("chd: parent CHD references are not supported")

	default:
		return nil, fmt.Errorf("chd: unknown compression type %d for hunk %d", entry.compression, hunkNum)
	}

	r.mu.Lock()
	if len(r.hunkCache) < hunkCacheLimit {
		r.hunkCache[hunkNum] = data
	}
	r.mu.Unlock()

	return data, nil
}
