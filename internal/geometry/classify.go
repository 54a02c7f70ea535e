// Package geometry classifies a CHD's logical layout into the view a
// mounted file should present: a plain 2048-byte-unit passthrough (DVD and
// other non-CD images) or a CD-ROM ISO/Form2 view carved out of 2352-byte
// raw frames, locating the first data track either from embedded TOC
// metadata or, failing that, by scanning frames directly.
package geometry

import (
	"fmt"

	"github.com/lloydsmart/chd2iso-fuse/internal/chdformat"
	"github.com/lloydsmart/chd2iso-fuse/internal/trackline"
)

// Kind is the backing layout a mounted file is served from.
type Kind int

const (
	// DVD2048 serves the CHD's logical bytes directly, 2048-byte units.
	DVD2048 Kind = iota
	// CD2352 serves a carved-out ISO/Form2 view over 2352-byte CD frames.
	CD2352
	// Raw2048 is the fallback for images whose unit size matches neither
	// 2048 nor 2352.
	Raw2048
)

// PayloadKind is the user-data shape carved out of a CD-ROM frame.
type PayloadKind int

const (
	Mode1_2048      PayloadKind = iota // Mode 1, 2048 user bytes at frame offset 16
	Mode2Form1_2048                    // Mode 2 Form 1, 2048 user bytes at frame offset 24
	Mode2Form2_2324                    // Mode 2 Form 2, 2324 user bytes at frame offset 24
)

// PayloadOffset and PayloadSize describe where a payload kind's user data
// sits within a raw 2352-byte CD frame.
func (p PayloadKind) PayloadOffset() int {
	if p == Mode1_2048 {
		return 16
	}
	return 24
}

func (p PayloadKind) PayloadSize() int {
	if p == Mode2Form2_2324 {
		return 2324
	}
	return 2048
}

const cdFrameBytes = 2352

// Geometry is the classification result for one CHD file.
type Geometry struct {
	Kind           Kind
	FirstDataFrame uint64 // CD2352 only
	Payload        PayloadKind
	TrackFrames    *uint64 // CD2352 only; nil when the track length must be inferred
	ISOSize        uint64
}

// Classify inspects r's header and metadata and determines how it should
// be exposed. The second return value is false when the file should not
// be listed at all (a Mode 2 Form 2 track without allowForm2).
func Classify(r *chdformat.Reader, allowForm2 bool) (*Geometry, bool, error) {
	switch r.UnitBytes() {
	case 2048:
		return &Geometry{Kind: DVD2048, ISOSize: r.LogicalBytes()}, true, nil

	case cdFrameBytes:
		totalFrames := r.LogicalBytes() / cdFrameBytes

		g, visible, found, err := classifyCDTOC(r, allowForm2, totalFrames)
		if err != nil {
			return nil, false, err
		}
		if found {
			return g, visible, nil
		}

		return scanFirstDataFrame(r, totalFrames, allowForm2)

	default:
		return &Geometry{Kind: Raw2048, ISOSize: r.LogicalBytes()}, true, nil
	}
}

// classifyCDTOC walks the CHTR/CHT2 track metadata chain looking for the
// first data track, accumulating absolute frame position across
// pregaps/frames/postgaps the way a physical disc's LBA counter would.
// found is false when there was no usable track metadata, or when none of
// the tracks is a data track, signaling the caller should fall back to
// scanFirstDataFrame.
func classifyCDTOC(r *chdformat.Reader, allowForm2 bool, totalFrames uint64) (g *Geometry, visible bool, found bool, err error) {
	var tracks []trackline.Track

	walk := func(payload []byte) error {
		t, ok := trackline.Parse(payload)
		if ok {
			tracks = append(tracks, t)
		}
		return nil
	}
	if err := r.WalkMetadata(chdformat.TagCDROM, walk); err != nil {
		return nil, false, false, fmt.Errorf("geometry: walk CHTR metadata: %w", err)
	}
	if err := r.WalkMetadata(chdformat.TagCDROM2, walk); err != nil {
		return nil, false, false, fmt.Errorf("geometry: walk CHT2 metadata: %w", err)
	}

	if len(tracks) == 0 {
		return nil, false, false, nil
	}

	sortTracksByNumber(tracks)

	var lba uint64
	for _, t := range tracks {
		lba += uint64(t.Pregap)

		payload, ok := dataPayloadFor(t.Kind, allowForm2)
		if ok {
			frames := uint64(t.Frames)
			return &Geometry{
				Kind:           CD2352,
				FirstDataFrame: lba,
				Payload:        payload,
				TrackFrames:    &frames,
				ISOSize:        frames * uint64(payload.PayloadSize()),
			}, true, true, nil
		}
		if t.Kind == trackline.Mode2Form2 && !allowForm2 {
			// A Form2 track was found but opted out: hide this file
			// entirely, matching the reference implementation rather than
			// falling through to a scan that would find the same track.
			return nil, false, true, nil
		}

		lba += uint64(t.Frames)
		lba += uint64(t.Postgap)
	}

	return nil, false, false, nil
}

func dataPayloadFor(kind trackline.Kind, allowForm2 bool) (PayloadKind, bool) {
	switch kind {
	case trackline.Mode1:
		return Mode1_2048, true
	case trackline.Mode2Form1:
		return Mode2Form1_2048, true
	case trackline.Mode2Form2:
		if allowForm2 {
			return Mode2Form2_2324, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func sortTracksByNumber(tracks []trackline.Track) {
	for i := 1; i < len(tracks); i++ {
		for j := i; j > 0 && tracks[j].Number < tracks[j-1].Number; j-- {
			tracks[j], tracks[j-1] = tracks[j-1], tracks[j]
		}
	}
}

// scanFirstDataFrame is the fallback used when a CHD carries no usable
// track metadata: it reads frames sequentially (capped at 2000, a plain
// audio CD's rough worst case for a pregap-only disc) and classifies the
// first one whose sync/header mode byte indicates Mode 1 or Mode 2 data.
func scanFirstDataFrame(r *chdformat.Reader, totalFrames uint64, allowForm2 bool) (*Geometry, bool, error) {
	scanLimit := totalFrames
	if scanLimit > 2000 {
		scanLimit = 2000
	}

	for frame := uint64(0); frame < scanLimit; frame++ {
		sector, err := readRawFrame(r, frame)
		if err != nil {
			return nil, false, fmt.Errorf("geometry: scan frame %d: %w", frame, err)
		}

		mode := sector[0x0F]
		switch mode {
		case 0x01:
			return geometryFromFirstFrame(frame, Mode1_2048, totalFrames), true, nil
		case 0x02:
			if allowForm2 {
				return geometryFromFirstFrame(frame, Mode2Form2_2324, totalFrames), true, nil
			}
			return geometryFromFirstFrame(frame, Mode2Form1_2048, totalFrames), true, nil
		}
	}

	return geometryFromFirstFrame(0, Mode1_2048, totalFrames), true, nil
}

func geometryFromFirstFrame(first uint64, payload PayloadKind, totalFrames uint64) *Geometry {
	frames := totalFrames - first
	return &Geometry{
		Kind:           CD2352,
		FirstDataFrame: first,
		Payload:        payload,
		TrackFrames:    nil,
		ISOSize:        frames * uint64(payload.PayloadSize()),
	}
}

// readRawFrame reads the hunk containing frame and returns its raw
// 2352-byte frame slice.
func readRawFrame(r *chdformat.Reader, frame uint64) ([]byte, error) {
	framesPerHunk := uint64(r.HunkBytes()) / cdFrameBytes
	if framesPerHunk == 0 {
		return nil, fmt.Errorf("invalid hunk size for CD data")
	}

	hunkIndex := uint32(frame / framesPerHunk)
	frameInHunk := frame % framesPerHunk

	hunk := make([]byte, r.HunkBytes())
	if err := r.ReadHunk(hunkIndex, hunk); err != nil {
		return nil, err
	}

	off := frameInHunk * cdFrameBytes
	return hunk[off : off+cdFrameBytes], nil
}
