// Package sectorview turns a classified CHD (component B's Geometry) into
// a flat byte stream: either a direct hunk-chunked passthrough of the
// logical data (DVD and other non-CD images) or a carved-out ISO/Form2
// view stitched together from individual cached CD frames.
package sectorview

import (
	"fmt"

	"github.com/lloydsmart/chd2iso-fuse/internal/chdformat"
	"github.com/lloydsmart/chd2iso-fuse/internal/framecache"
	"github.com/lloydsmart/chd2iso-fuse/internal/geometry"
)

const cdFrameBytes = 2352

// View reads the user-visible byte stream of one classified CHD file.
type View struct {
	reader *chdformat.Reader
	geom   *geometry.Geometry
	cache  *framecache.Cache
	fileID uint64
}

// New builds a View. fileID identifies this CHD within the shared frame
// cache's key space (the index entry's inode number is a natural choice).
func New(reader *chdformat.Reader, geom *geometry.Geometry, cache *framecache.Cache, fileID uint64) *View {
	return &View{reader: reader, geom: geom, cache: cache, fileID: fileID}
}

// Size is the number of bytes this view exposes.
func (v *View) Size() uint64 { return v.geom.ISOSize }

// ReadAt returns up to size bytes of the exposed view starting at off,
// clamped to Size(). A request entirely past the end returns an empty,
// non-error result.
func (v *View) ReadAt(off uint64, size uint32) ([]byte, error) {
	if off >= v.Size() || size == 0 {
		return nil, nil
	}
	end := off + uint64(size)
	if end > v.Size() {
		end = v.Size()
	}
	want := int(end - off)

	switch v.geom.Kind {
	case geometry.CD2352:
		return v.readCD(off, want)
	default:
		return v.readLogical(off, want)
	}
}

// readLogical serves DVD2048/Raw2048 images: the exposed bytes are exactly
// the CHD's logical data, chunked by hunk.
func (v *View) readLogical(off uint64, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	hunkBytes := uint64(v.reader.HunkBytes())
	pos := off

	for len(out) < want {
		hunkIndex := uint32(pos / hunkBytes)
		hunkOff := pos % hunkBytes

		hunk := make([]byte, hunkBytes)
		if err := v.reader.ReadHunk(hunkIndex, hunk); err != nil {
			return nil, fmt.Errorf("sectorview: read hunk %d: %w", hunkIndex, err)
		}

		take := uint64(want-len(out)) + hunkOff
		if take > hunkBytes {
			take = hunkBytes
		}
		out = append(out, hunk[hunkOff:take]...)
		pos += take - hunkOff
	}

	return out, nil
}

// readCD serves the CD2352 view: the ISO byte range is translated into a
// run of (per_sector)-aligned user-data chunks extracted from cached raw
// CD frames.
func (v *View) readCD(off uint64, want int) ([]byte, error) {
	perSector := uint64(v.geom.Payload.PayloadSize())
	payloadStart := v.geom.Payload.PayloadOffset()

	out := make([]byte, 0, want)
	isoSector := off / perSector
	inSectorOff := int(off % perSector)

	for len(out) < want {
		frameIndex := v.geom.FirstDataFrame + isoSector

		frame, err := v.getFrame(frameIndex)
		if err != nil {
			return nil, fmt.Errorf("sectorview: read frame %d: %w", frameIndex, err)
		}

		payload := frame[payloadStart : payloadStart+int(perSector)]
		avail := int(perSector) - inSectorOff
		take := want - len(out)
		if take > avail {
			take = avail
		}

		out = append(out, payload[inSectorOff:inSectorOff+take]...)
		isoSector++
		inSectorOff = 0
	}

	return out, nil
}

// getFrame returns a raw 2352-byte CD frame, decoding and caching it on a
// miss.
func (v *View) getFrame(frameIndex uint64) ([]byte, error) {
	key := framecache.Key{FileID: v.fileID, Frame: frameIndex}
	if v.cache != nil {
		if cached, ok := v.cache.Get(key); ok {
			return cached, nil
		}
	}

	framesPerHunk := uint64(v.reader.HunkBytes()) / cdFrameBytes
	if framesPerHunk == 0 {
		return nil, fmt.Errorf("invalid hunk size for CD data")
	}

	hunkIndex := uint32(frameIndex / framesPerHunk)
	frameInHunk := frameIndex % framesPerHunk

	hunk := make([]byte, v.reader.HunkBytes())
	if err := v.reader.ReadHunk(hunkIndex, hunk); err != nil {
		return nil, err
	}

	off := frameInHunk * cdFrameBytes
	frame := append([]byte(nil), hunk[off:off+cdFrameBytes]...)

	if v.cache != nil {
		v.cache.Put(key, frame)
	}
	return frame, nil
}
